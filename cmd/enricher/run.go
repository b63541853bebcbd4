package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/shpitdev/entity-search-enricher/internal/app"
	"github.com/shpitdev/entity-search-enricher/internal/enrich"
	"github.com/shpitdev/entity-search-enricher/pkg/pipeline/schema"
)

func newRunCmd(v *viper.Viper) *cobra.Command {
	var opts app.RunOptions
	var format string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Enrich every row of one column and write the extracted results",
		Example: `  enricher run --input companies.csv --column company --output extracted_data.csv
  enricher run --sheet-id 1AbC... --column company --output - --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := schema.Validate(format); err != nil {
				return err
			}
			opts.Format = schema.FormatForPath(format, opts.OutputPath)
			opts.Stdout = cmd.OutOrStdout()

			_, _, svc, err := setup(cmd.Context(), v)
			if err != nil {
				return err
			}
			_, err = app.Run(cmd.Context(), svc, opts)
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.InputPath, "input", "", "input CSV file")
	f.StringVar(&opts.SheetID, "sheet-id", "", "public Google Sheet id to read instead of --input")
	f.StringVar(&opts.Column, "column", "", "column holding the entity names")
	f.StringVar(&opts.Template, "template", enrich.DefaultQueryTemplate, "search query template; {company} is replaced by each entity")
	f.StringVar(&opts.Instruction, "instruction", enrich.DefaultInstruction, "extraction instruction; {company} is replaced by each entity")
	f.StringVar(&opts.OutputPath, "output", "extracted_data.csv", `output file, or "-" for stdout`)
	f.StringVar(&format, "format", "", "output format: csv or json (default from --output extension)")
	_ = cmd.MarkFlagFilename("input", "csv")
	return cmd
}
