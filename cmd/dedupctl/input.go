package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/syed-c/standzon-sub002/pkg/dedup"
	"github.com/syed-c/standzon-sub002/pkg/extractor"
	"github.com/syed-c/standzon-sub002/pkg/models"
)

// loadBuilders reads and maps the builders named by the --file flag
func loadBuilders(cmd *cobra.Command) ([]models.Builder, error) {
	path, _ := cmd.Flags().GetString("file")

	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var docs []map[string]any
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	// documents without an id are named by position so analyze and resolve agree on group ids
	mapper := extractor.NewBuilderMapper(extractor.DefaultPaths(), extractor.WithIDFunc(extractor.RowID))
	return mapper.MapAll(docs)
}

// newResolver builds a resolver from the --phone-min-digits and --rules flags
func newResolver(cmd *cobra.Command) (*dedup.Resolver, error) {
	minDigits, _ := cmd.Flags().GetInt("phone-min-digits")
	if minDigits < dedup.DefaultPhoneMinDigits {
		return nil, fmt.Errorf("--phone-min-digits must be at least %d, got %d", dedup.DefaultPhoneMinDigits, minDigits)
	}

	names, _ := cmd.Flags().GetStringSlice("rules")
	rules, err := dedup.RulesByName(names, minDigits)
	if err != nil {
		return nil, fmt.Errorf("--rules: %w", err)
	}

	return dedup.NewResolver(dedup.Config{PhoneMinDigits: minDigits, Rules: rules}), nil
}

// writeOutput prints v in the format named by the --output flag
func writeOutput(cmd *cobra.Command, v any) error {
	format, _ := cmd.Flags().GetString("output")
	out := cmd.OutOrStdout()

	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q, expected json or yaml", format)
	}
}
