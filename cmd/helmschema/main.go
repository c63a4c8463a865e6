// helmschema infers a JSON Schema for a Helm chart's values.yaml by
// statically analyzing its templates, without rendering the chart.
package main

import (
	"os"

	"github.com/hupe1980/helmschema/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
