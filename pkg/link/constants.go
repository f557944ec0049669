package link

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/leapstack-labs/weslink/pkg/grammar"
	"github.com/leapstack-labs/weslink/pkg/registry"
)

// ConstantsModule is the path of the virtual module holding caller-supplied
// constants: import constants::NAME;
const ConstantsModule = "constants"

// WithConstants layers the constants module over l. With no constants it
// returns l unchanged.
func WithConstants(l registry.Lookup, constants map[string]any) (registry.Lookup, error) {
	if len(constants) == 0 {
		return l, nil
	}
	cm, err := constantsModule(constants)
	if err != nil {
		return nil, err
	}
	return registry.Overlay(l, cm), nil
}

// constantsModule renders constants as "const NAME = value;" declarations.
func constantsModule(constants map[string]any) (*registry.Module, error) {
	names := make([]string, 0, len(constants))
	for k := range constants {
		names = append(names, k)
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		v, err := literal(constants[name])
		if err != nil {
			return nil, fmt.Errorf("constant %s: %w", name, err)
		}
		fmt.Fprintf(&sb, "const %s = %s;\n", name, v)
	}
	tree, err := grammar.Parse(sb.String(), ConstantsModule, grammar.Options{})
	if err != nil {
		return nil, fmt.Errorf("constants module: %w", err)
	}
	return registry.NewModule(ConstantsModule, tree), nil
}

// literal formats a constant value as shader source. Strings are inserted
// verbatim, so callers can pass expressions such as "vec3f(1.0)".
func literal(v any) (string, error) {
	switch v := v.(type) {
	case bool:
		return strconv.FormatBool(v), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case uint:
		return strconv.FormatUint(uint64(v), 10) + "u", nil
	case uint32:
		return strconv.FormatUint(uint64(v), 10) + "u", nil
	case float32:
		return floatLiteral(float64(v)), nil
	case float64:
		return floatLiteral(v), nil
	case string:
		if strings.TrimSpace(v) == "" {
			return "", fmt.Errorf("empty value")
		}
		return v, nil
	default:
		return "", fmt.Errorf("unsupported value type %T", v)
	}
}

func floatLiteral(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
