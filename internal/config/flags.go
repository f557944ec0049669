package config

import "github.com/spf13/pflag"

// AddFlags registers the flags Load understands on fs. Flags override the
// config file and the environment when set.
func AddFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "config file (default: ./weslink.yaml, searched upward)")
	fs.String("root", "", "root module, as a file (main.wesl) or module path (package::main)")
	fs.String("sources-dir", "", "directory holding the package's shader sources")
	fs.String("package-name", "", "name substituted for package:: in this project")
	fs.String("dialect", "", "source dialect (modern|legacy)")
	fs.StringToString("condition", nil, "condition value, repeatable (--condition mobile=true)")
	fs.StringToString("constant", nil, "constant exposed as constants::NAME, repeatable (--constant count=4u)")
	fs.StringSlice("entry-point", nil, "extra declaration to link, repeatable")
	fs.StringSlice("bundle", nil, "bundle.yaml manifest of a library dependency, repeatable")
	fs.String("state", "", "path to the link state database")
	fs.BoolP("verbose", "v", false, "verbose output")
	fs.StringP("format", "f", "", "report format (auto|text|markdown|json)")
}
