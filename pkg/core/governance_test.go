//go:build governance

package core_test

import (
	"go/types"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

// TestGovernance_CoreCohesion verifies that types in pkg/core are shared by
// several packages. A type with a single consumer belongs in that consumer.
func TestGovernance_CoreCohesion(t *testing.T) {
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedImports | packages.NeedTypes |
			packages.NeedTypesInfo | packages.NeedDeps,
	}
	pkgs, err := packages.Load(cfg, modulePath+"/...")
	if err != nil {
		t.Fatalf("Failed to load packages: %v", err)
	}

	coreTypes := make(map[types.Object]string)
	for _, p := range pkgs {
		if p.PkgPath != modulePath+"/pkg/core" {
			continue
		}
		scope := p.Types.Scope()
		for _, name := range scope.Names() {
			if obj, ok := scope.Lookup(name).(*types.TypeName); ok && obj.Exported() {
				coreTypes[obj] = name
			}
		}
	}
	if len(coreTypes) == 0 {
		t.Fatal("Could not find pkg/core types")
	}

	usage := make(map[string]map[string]bool)
	for _, name := range coreTypes {
		usage[name] = make(map[string]bool)
	}
	for _, p := range pkgs {
		if p.PkgPath == modulePath+"/pkg/core" || p.TypesInfo == nil {
			continue
		}
		for _, obj := range p.TypesInfo.Uses {
			if name, ok := coreTypes[obj]; ok {
				usage[name][strings.TrimPrefix(p.PkgPath, modulePath+"/")] = true
			}
		}
	}

	for name, importers := range usage {
		switch len(importers) {
		case 0:
			t.Logf("WARNING: unused core type %s", name)
		case 1:
			for user := range importers {
				t.Errorf("COHESION VIOLATION: core.%s is used only by %s", name, user)
			}
		}
	}
}

// TestGovernance_NoInternalInPublicAPI verifies no exported declaration of
// a pkg/ package mentions a type from internal/.
func TestGovernance_NoInternalInPublicAPI(t *testing.T) {
	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedTypes}
	pkgs, err := packages.Load(cfg, modulePath+"/pkg/...")
	if err != nil {
		t.Fatalf("Failed to load packages: %v", err)
	}

	for _, p := range pkgs {
		if len(p.Errors) > 0 {
			continue
		}
		scope := p.Types.Scope()
		for _, name := range scope.Names() {
			obj := scope.Lookup(name)
			if !obj.Exported() {
				continue
			}
			s := types.TypeString(obj.Type(), nil)
			if strings.Contains(s, modulePath+"/internal/") {
				t.Errorf("%s.%s exposes internal type: %s", p.Name, name, s)
			}
		}
	}
}
