package cli

import "github.com/spf13/cobra"

// registerValuesFlags adds the Helm --values/--set family of flags to a
// cobra command, binding them to the given slices. Shared across infer,
// inspect, and watch; infer and watch merge these values over
// values.yaml before analyzing a chart, while inspect accepts the flags
// but does not read them.
func registerValuesFlags(cmd *cobra.Command, valueFiles, values, stringValues, fileValues *[]string) {
	f := cmd.Flags()
	f.StringArrayVarP(valueFiles, "values", "f", nil, "values YAML files (can specify multiple)")
	f.StringArrayVar(values, "set", nil, "set values (key=value, can specify multiple)")
	f.StringArrayVar(stringValues, "set-string", nil, "set string values (key=value)")

	if fileValues != nil {
		f.StringArrayVar(fileValues, "set-file", nil, "set values from files (key=filepath)")
	}
}
