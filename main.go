package main

import (
	"log"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

const version = "1.0.0"

var (
	httpAddr   string
	strictArgs bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "baserow-mcp",
		Short:   "MCP servers for Baserow database management and local project tracking",
		Version: version,
	}
	rootCmd.PersistentFlags().StringVar(&httpAddr, "http", "", "serve over streamable HTTP on this address instead of stdio")
	rootCmd.PersistentFlags().BoolVar(&strictArgs, "strict-args", false, "validate tool arguments against their declared schemas")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "baserow",
		Short: "Serve the Baserow database management tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig()
			if err != nil {
				return err
			}
			client := NewBaserowClient(cfg)

			reg := NewToolRegistry(strictArgs)
			if err := reg.Add(healthTools(client)...); err != nil {
				return err
			}
			if err := reg.Add(databaseTools(client)...); err != nil {
				return err
			}
			if err := reg.Add(tableTools(client)...); err != nil {
				return err
			}
			if err := reg.Add(fieldTools(client)...); err != nil {
				return err
			}
			if err := reg.Add(rowTools(client)...); err != nil {
				return err
			}
			if err := reg.Add(analysisTools(client)...); err != nil {
				return err
			}

			log.Printf("Baserow MCP server starting (target %s)", cfg.BaserowURL)
			return serveMCP("baserow-mcp", reg)
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "tasks",
		Short: "Serve the local task tracker tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig()
			if err != nil {
				return err
			}

			// Open once at startup so schema and seed problems surface
			// immediately, not on the first tool call.
			store, err := OpenTaskStore(cfg.DBPath)
			if err != nil {
				return err
			}
			store.Close()

			reg := NewToolRegistry(strictArgs)
			if err := reg.Add(taskTools(cfg)...); err != nil {
				return err
			}

			log.Printf("Task tracker MCP server starting with database at %s", cfg.DBPath)
			return serveMCP("task-tracker-mcp", reg)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func serveMCP(name string, reg *ToolRegistry) error {
	s := server.NewMCPServer(name, version, server.WithToolCapabilities(true))
	s.AddTools(reg.ServerTools()...)

	if httpAddr != "" {
		log.Printf("%s listening on %s", name, httpAddr)
		return server.NewStreamableHTTPServer(s).Start(httpAddr)
	}
	return server.ServeStdio(s)
}
