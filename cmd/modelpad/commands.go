package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/modelpad/modelpad/adapters"
	"github.com/modelpad/modelpad/config"
	"github.com/modelpad/modelpad/core"
	"github.com/modelpad/modelpad/output/format"
)

func loadConfig(flags *rootFlags) (*config.File, *zap.Logger, error) {
	logger, err := flags.logger()
	if err != nil {
		return nil, nil, err
	}

	cfg, err := config.Load(config.Path(flags.configFile, logger), logger)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func newValidateCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load the configuration and check it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfig(flags)
			if err != nil {
				return err
			}

			if err := cfg.ValidatePipeline(); err != nil {
				cmd.Printf("data layer config OK; not usable for pipeline runs: %v\n", err)
				return nil
			}
			cmd.Println("config OK")
			return nil
		},
	}
}

func newSourcesCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List configured datasources and datasinks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfig(flags)
			if err != nil {
				return err
			}

			describe := func(kind string, entries map[string]*config.Source) {
				ids := make([]string, 0, len(entries))
				for id := range entries {
					ids = append(ids, id)
				}
				sort.Strings(ids)

				for _, id := range ids {
					entry := entries[id]
					tags := strings.Join(entry.Tags, ",")
					if tags == "" {
						tags = "-"
					}
					cmd.Printf("%s\t%s\t%s\ttags=%s\n", kind, id, entry.Type, tags)
				}
			}

			describe("source", cfg.DataSources)
			describe("sink", cfg.DataSinks)
			return nil
		},
	}
}

func newPreviewCmd(flags *rootFlags) *cobra.Command {
	var (
		limit      int
		formatName string
	)

	cmd := &cobra.Command{
		Use:   "preview <datasource>",
		Short: "Read a datasource and print the first rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(flags)
			if err != nil {
				return err
			}

			source, err := adapters.NewSource(cfg, args[0], logger)
			if err != nil {
				return err
			}
			defer source.Close()

			stream, err := source.StreamFrame(cmd.Context(), nil)
			if err != nil {
				return err
			}

			chunks, err := core.Chunks(stream, limit)
			if err != nil {
				return err
			}
			defer chunks.Close()

			frame := core.NewFrame(stream.Header(), nil)
			if chunks.HasNext() {
				frame, err = chunks.Next()
				if err != nil {
					return err
				}
			}

			var formatter format.Formatter
			switch formatName {
			case "table":
				formatter = format.NewTable()
			case "json":
				formatter = format.NewJSON()
			default:
				return fmt.Errorf("unknown format %q (available: table, json)", formatName)
			}

			if err := formatter.Format(frame, cmd.OutOrStdout()); err != nil {
				return err
			}
			cmd.Println()
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of rows to show")
	cmd.Flags().StringVarP(&formatName, "format", "f", "table", "output format (table, json)")

	return cmd
}
