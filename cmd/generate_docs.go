package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

func newGenerateDocsCmd() *cobra.Command {
	var (
		outputFile string
	)

	cmd := &cobra.Command{
		Use:   "generate-docs",
		Short: "Generate MCP tool documentation",
		Long: `Generate markdown documentation for all available MCP tools.
This command introspects the registered tools and outputs their documentation
in markdown format, ensuring the documentation is always accurate and in sync
with the actual tool implementations.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerateDocs(outputFile)
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

func runGenerateDocs(outputFile string) error {
	mcpSrv := mcpserver.NewMCPServer("odoocal", version,
		mcpserver.WithToolCapabilities(true),
	)

	// Tool definitions do not depend on a session. Registering in write
	// mode lists every tool.
	if err := registerAllTools(mcpSrv, nil, false); err != nil {
		return err
	}

	serverTools := mcpSrv.ListTools()
	tools := make([]mcp.Tool, 0, len(serverTools))
	for _, serverTool := range serverTools {
		tools = append(tools, serverTool.Tool)
	}

	markdown := generateToolsMarkdown(tools, writeTools(mcpSrv))

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(markdown), 0o644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Documentation written to: %s\n", outputFile)
	} else {
		fmt.Print(markdown)
	}

	return nil
}

// writeTools returns the names of the tools only registered with --yolo
func writeTools(all *mcpserver.MCPServer) map[string]bool {
	readOnly := mcpserver.NewMCPServer("odoocal", version, mcpserver.WithToolCapabilities(true))
	if err := registerAllTools(readOnly, nil, true); err != nil {
		return nil
	}
	available := readOnly.ListTools()

	write := make(map[string]bool)
	for name := range all.ListTools() {
		if _, ok := available[name]; !ok {
			write[name] = true
		}
	}
	return write
}

func generateToolsMarkdown(tools []mcp.Tool, write map[string]bool) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# MCP Tools Reference\n\n")
	sb.WriteString("This document provides a complete reference of all tools available when running odoocal as an MCP server.\n\n")
	sb.WriteString("**Note:** This documentation is automatically generated from the tool definitions.\n\n")

	// Group tools by category
	toolsByCategory := groupToolsByCategory(tools)

	// Table of contents
	sb.WriteString("## Table of Contents\n\n")
	categories := make([]string, 0, len(toolsByCategory))
	for category := range toolsByCategory {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	for _, category := range categories {
		anchor := strings.ToLower(strings.ReplaceAll(category, " ", "-"))
		sb.WriteString(fmt.Sprintf("- [%s](#%s)\n", category, anchor))
	}
	sb.WriteString("\n")

	sb.WriteString("## Read-Only Mode\n\n")
	sb.WriteString("The server starts in read-only mode. Tools marked **write** are only available with `serve --yolo`.\n\n")

	// Generate documentation for each category
	for _, category := range categories {
		categoryTools := toolsByCategory[category]
		sort.Slice(categoryTools, func(i, j int) bool {
			return categoryTools[i].Name < categoryTools[j].Name
		})

		sb.WriteString(fmt.Sprintf("## %s\n\n", category))

		for _, tool := range categoryTools {
			sb.WriteString(generateToolMarkdown(tool, write[tool.Name]))
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

func groupToolsByCategory(tools []mcp.Tool) map[string][]mcp.Tool {
	categories := make(map[string][]mcp.Tool)

	for _, tool := range tools {
		category := getCategoryFromToolName(tool.Name)
		categories[category] = append(categories[category], tool)
	}

	return categories
}

func getCategoryFromToolName(name string) string {
	parts := strings.Split(name, "_")
	if len(parts) < 2 || parts[0] != "calendar" {
		return "Other"
	}

	switch {
	case strings.HasPrefix(parts[len(parts)-1], "favorite"):
		return "Favorite Filter Tools"
	case strings.HasPrefix(parts[len(parts)-1], "notification"):
		return "Event Reminder Tools"
	case parts[len(parts)-1] == "attendees":
		return "Attendee Tools"
	default:
		return "Other"
	}
}

func generateToolMarkdown(tool mcp.Tool, write bool) string {
	var sb strings.Builder

	if write {
		sb.WriteString(fmt.Sprintf("### %s (write)\n\n", tool.Name))
	} else {
		sb.WriteString(fmt.Sprintf("### %s\n\n", tool.Name))
	}

	// Description
	if tool.Description != "" {
		sb.WriteString(fmt.Sprintf("%s\n\n", tool.Description))
	}

	// Input schema
	if len(tool.InputSchema.Properties) > 0 {
		sb.WriteString("**Arguments:**\n")

		// Sort properties for consistent output
		propNames := make([]string, 0, len(tool.InputSchema.Properties))
		for name := range tool.InputSchema.Properties {
			propNames = append(propNames, name)
		}
		sort.Strings(propNames)

		for _, name := range propNames {
			prop := tool.InputSchema.Properties[name]
			isRequired := contains(tool.InputSchema.Required, name)

			requiredStr := "optional"
			if isRequired {
				requiredStr = "required"
			}

			// Get property type and description from the property map
			propMap, ok := prop.(map[string]any)
			if !ok {
				continue
			}

			propType := getPropertyType(propMap)

			sb.WriteString(fmt.Sprintf("- `%s` (%s): ", name, requiredStr))

			// Get description
			if desc, ok := propMap["description"].(string); ok {
				sb.WriteString(desc)
			} else {
				sb.WriteString(fmt.Sprintf("%s parameter", propType))
			}

			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func getPropertyType(prop map[string]any) string {
	if t, ok := prop["type"].(string); ok {
		return t
	}
	return "any"
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
