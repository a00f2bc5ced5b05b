package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// --- Health & Diagnostics Tools ---

func healthTools(c *BaserowClient) []server.ServerTool {
	return []server.ServerTool{
		{
			Tool: mcp.NewTool("health_check",
				mcp.WithDescription("Check Baserow server health and connectivity"),
			),
			Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				payload, err := c.Call(ctx, "GET", "/health/", nil)
				if err != nil {
					return mcp.NewToolResultError(fmt.Sprintf("Health check failed: %v", err)), nil
				}
				return mcp.NewToolResultText("Baserow health check:\n" + prettyJSON(payload)), nil
			},
		},
		{
			Tool: mcp.NewTool("test_api_connection",
				mcp.WithDescription("Test API connectivity and authentication"),
			),
			Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				payload, err := c.Call(ctx, "GET", "/user/", nil)
				if err != nil {
					return mcp.NewToolResultError(fmt.Sprintf("API connection failed: %v", err)), nil
				}
				user, _ := payload.(map[string]interface{})
				text := fmt.Sprintf("API connection successful:\nUser: %v %v\nEmail: %v\nActive: %v",
					user["first_name"], user["last_name"], user["email"], user["is_active"])
				return mcp.NewToolResultText(text), nil
			},
		},
	}
}

// --- Database Tools ---

func databaseTools(c *BaserowClient) []server.ServerTool {
	return []server.ServerTool{
		{
			Tool: mcp.NewTool("list_databases",
				mcp.WithDescription("List all available databases"),
			),
			Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				payload, err := c.Call(ctx, "GET", "/applications/", nil)
				if err != nil {
					return mcp.NewToolResultError(fmt.Sprintf("Failed to list databases: %v", err)), nil
				}
				databases := resultsList(payload)
				lines := make([]string, 0, len(databases))
				for _, db := range databases {
					m, ok := db.(map[string]interface{})
					if !ok {
						continue
					}
					lines = append(lines, fmt.Sprintf("- %v (ID: %v) - type: %v", m["name"], m["id"], m["type"]))
				}
				text := fmt.Sprintf("Available databases (%d):\n%s", len(databases), strings.Join(lines, "\n"))
				return mcp.NewToolResultText(text), nil
			},
		},
		{
			Tool: mcp.NewTool("get_database_info",
				mcp.WithDescription("Get detailed information about a database"),
				mcp.WithString("database_id", mcp.Required(), mcp.Description("Database ID")),
			),
			Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				databaseID, err := req.RequireString("database_id")
				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}
				payload, err := c.Call(ctx, "GET", "/applications/"+databaseID+"/", nil)
				if err != nil {
					return mcp.NewToolResultError(fmt.Sprintf("Failed to get database info: %v", err)), nil
				}
				return mcp.NewToolResultText("Database info:\n" + prettyJSON(payload)), nil
			},
		},
		{
			Tool: mcp.NewTool("create_database",
				mcp.WithDescription("Create a new database"),
				mcp.WithString("name", mcp.Required(), mcp.Description("Database name")),
				mcp.WithString("group_id", mcp.Description("Workspace group ID (optional)")),
			),
			Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				name, err := req.RequireString("name")
				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}
				body := map[string]interface{}{
					"name": name,
					"type": "database",
				}
				if groupID := req.GetString("group_id", ""); groupID != "" {
					body["group"] = groupID
				}
				payload, err := c.Call(ctx, "POST", "/applications/", body)
				if err != nil {
					return mcp.NewToolResultError(fmt.Sprintf("Failed to create database: %v", err)), nil
				}
				return mcp.NewToolResultText("Database created successfully:\n" + prettyJSON(payload)), nil
			},
		},
	}
}

// --- Table Tools ---

func tableTools(c *BaserowClient) []server.ServerTool {
	return []server.ServerTool{
		{
			Tool: mcp.NewTool("list_tables",
				mcp.WithDescription("List all tables in a database"),
				mcp.WithString("database_id", mcp.Required(), mcp.Description("Database ID")),
			),
			Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				databaseID, err := req.RequireString("database_id")
				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}
				payload, err := c.Call(ctx, "GET", "/database/tables/database/"+databaseID+"/", nil)
				if err != nil {
					return mcp.NewToolResultError(fmt.Sprintf("Failed to list tables: %v", err)), nil
				}
				tables := resultsList(payload)
				lines := make([]string, 0, len(tables))
				for _, table := range tables {
					m, ok := table.(map[string]interface{})
					if !ok {
						continue
					}
					lines = append(lines, fmt.Sprintf("- %v (ID: %v) - order: %v", m["name"], m["id"], m["order"]))
				}
				text := fmt.Sprintf("Tables in database %s (%d):\n%s", databaseID, len(tables), strings.Join(lines, "\n"))
				return mcp.NewToolResultText(text), nil
			},
		},
		{
			Tool: mcp.NewTool("get_table_info",
				mcp.WithDescription("Get detailed information about a table"),
				mcp.WithString("table_id", mcp.Required(), mcp.Description("Table ID")),
			),
			Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				tableID, err := req.RequireString("table_id")
				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}
				payload, err := c.Call(ctx, "GET", "/database/tables/"+tableID+"/", nil)
				if err != nil {
					return mcp.NewToolResultError(fmt.Sprintf("Failed to get table info: %v", err)), nil
				}
				return mcp.NewToolResultText("Table info:\n" + prettyJSON(payload)), nil
			},
		},
		{
			Tool: mcp.NewTool("create_table",
				mcp.WithDescription("Create a new table in a database"),
				mcp.WithString("database_id", mcp.Required(), mcp.Description("Database ID")),
				mcp.WithString("name", mcp.Required(), mcp.Description("Table name")),
				mcp.WithBoolean("init_with_data", mcp.Description("Initialize with sample data")),
			),
			Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				databaseID, err := req.RequireString("database_id")
				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}
				name, err := req.RequireString("name")
				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}
				body := map[string]interface{}{
					"name":           name,
					"init_with_data": req.GetBool("init_with_data", false),
				}
				payload, err := c.Call(ctx, "POST", "/database/tables/database/"+databaseID+"/", body)
				if err != nil {
					return mcp.NewToolResultError(fmt.Sprintf("Failed to create table: %v", err)), nil
				}
				return mcp.NewToolResultText("Table created successfully:\n" + prettyJSON(payload)), nil
			},
		},
	}
}

// --- Field Tools ---

func fieldTools(c *BaserowClient) []server.ServerTool {
	return []server.ServerTool{
		{
			Tool: mcp.NewTool("list_fields",
				mcp.WithDescription("List all fields in a table"),
				mcp.WithString("table_id", mcp.Required(), mcp.Description("Table ID")),
			),
			Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				tableID, err := req.RequireString("table_id")
				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}
				payload, err := c.Call(ctx, "GET", "/database/fields/table/"+tableID+"/", nil)
				if err != nil {
					return mcp.NewToolResultError(fmt.Sprintf("Failed to list fields: %v", err)), nil
				}
				fields := resultsList(payload)
				lines := make([]string, 0, len(fields))
				for _, field := range fields {
					m, ok := field.(map[string]interface{})
					if !ok {
						continue
					}
					lines = append(lines, fmt.Sprintf("- %v (ID: %v) - type: %v, order: %v", m["name"], m["id"], m["type"], m["order"]))
				}
				text := fmt.Sprintf("Fields in table %s (%d):\n%s", tableID, len(fields), strings.Join(lines, "\n"))
				return mcp.NewToolResultText(text), nil
			},
		},
		{
			Tool: mcp.NewTool("create_field",
				mcp.WithDescription("Create a new field in a table"),
				mcp.WithString("table_id", mcp.Required(), mcp.Description("Table ID")),
				mcp.WithString("type", mcp.Required(), mcp.Description("Field type (text, number, single_select, etc.)")),
				mcp.WithString("name", mcp.Required(), mcp.Description("Field name")),
				mcp.WithObject("options", mcp.Description("Type-specific field options")),
			),
			Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				tableID, err := req.RequireString("table_id")
				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}
				fieldType, err := req.RequireString("type")
				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}
				name, err := req.RequireString("name")
				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}
				body := map[string]interface{}{
					"type": fieldType,
					"name": name,
				}
				if options, ok := req.GetArguments()["options"].(map[string]interface{}); ok {
					for k, v := range options {
						body[k] = v
					}
				}
				payload, err := c.Call(ctx, "POST", "/database/fields/table/"+tableID+"/", body)
				if err != nil {
					return mcp.NewToolResultError(fmt.Sprintf("Failed to create field: %v", err)), nil
				}
				return mcp.NewToolResultText("Field created successfully:\n" + prettyJSON(payload)), nil
			},
		},
		{
			Tool: mcp.NewTool("update_field",
				mcp.WithDescription("Update an existing field"),
				mcp.WithString("field_id", mcp.Required(), mcp.Description("Field ID")),
				mcp.WithString("name", mcp.Description("New field name")),
				mcp.WithObject("options", mcp.Description("New field options")),
			),
			Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				fieldID, err := req.RequireString("field_id")
				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}
				body := map[string]interface{}{}
				if name := optionalString(req, "name"); name != nil {
					body["name"] = *name
				}
				if options, ok := req.GetArguments()["options"].(map[string]interface{}); ok {
					for k, v := range options {
						body[k] = v
					}
				}
				payload, err := c.Call(ctx, "PATCH", "/database/fields/"+fieldID+"/", body)
				if err != nil {
					return mcp.NewToolResultError(fmt.Sprintf("Failed to update field: %v", err)), nil
				}
				return mcp.NewToolResultText("Field updated successfully:\n" + prettyJSON(payload)), nil
			},
		},
		{
			Tool: mcp.NewTool("delete_field",
				mcp.WithDescription("Delete a field from a table"),
				mcp.WithString("field_id", mcp.Required(), mcp.Description("Field ID")),
			),
			Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				fieldID, err := req.RequireString("field_id")
				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}
				if _, err := c.Call(ctx, "DELETE", "/database/fields/"+fieldID+"/", nil); err != nil {
					return mcp.NewToolResultError(fmt.Sprintf("Failed to delete field: %v", err)), nil
				}
				return mcp.NewToolResultText(fmt.Sprintf("Field %s deleted successfully", fieldID)), nil
			},
		},
	}
}

// --- Row Tools ---

func rowTools(c *BaserowClient) []server.ServerTool {
	return []server.ServerTool{
		{
			Tool: mcp.NewTool("list_rows",
				mcp.WithDescription("List rows from a table with pagination and search"),
				mcp.WithString("table_id", mcp.Required(), mcp.Description("Table ID")),
				mcp.WithNumber("page", mcp.Description("Page number")),
				mcp.WithNumber("size", mcp.Description("Rows per page")),
				mcp.WithString("search", mcp.Description("Free-text search")),
				mcp.WithObject("filters", mcp.Description("Column filters")),
				mcp.WithString("order_by", mcp.Description("Field to order by")),
			),
			Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				tableID, err := req.RequireString("table_id")
				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}
				// Only supplied parameters make it into the query string.
				params := url.Values{}
				if page := optionalInt64(req, "page"); page != nil {
					params.Set("page", strconv.FormatInt(*page, 10))
				}
				if size := optionalInt64(req, "size"); size != nil {
					params.Set("size", strconv.FormatInt(*size, 10))
				}
				if search := optionalString(req, "search"); search != nil {
					params.Set("search", *search)
				}
				if orderBy := optionalString(req, "order_by"); orderBy != nil {
					params.Set("order_by", *orderBy)
				}
				endpoint := "/database/rows/table/" + tableID + "/"
				if encoded := params.Encode(); encoded != "" {
					endpoint += "?" + encoded
				}
				payload, err := c.Call(ctx, "GET", endpoint, nil)
				if err != nil {
					return mcp.NewToolResultError(fmt.Sprintf("Failed to list rows: %v", err)), nil
				}
				count := "unknown"
				if n, ok := rowCount(payload); ok {
					count = strconv.Itoa(n)
				}
				text := fmt.Sprintf("Rows from table %s:\nCount: %s\nResults: %d\n\n%s",
					tableID, count, len(resultsList(payload)), prettyJSON(payload))
				return mcp.NewToolResultText(text), nil
			},
		},
		{
			Tool: mcp.NewTool("get_row",
				mcp.WithDescription("Get a specific row by ID"),
				mcp.WithString("table_id", mcp.Required(), mcp.Description("Table ID")),
				mcp.WithString("row_id", mcp.Required(), mcp.Description("Row ID")),
			),
			Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				tableID, err := req.RequireString("table_id")
				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}
				rowID, err := req.RequireString("row_id")
				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}
				payload, err := c.Call(ctx, "GET", "/database/rows/table/"+tableID+"/"+rowID+"/", nil)
				if err != nil {
					return mcp.NewToolResultError(fmt.Sprintf("Failed to get row: %v", err)), nil
				}
				text := fmt.Sprintf("Row %s from table %s:\n%s", rowID, tableID, prettyJSON(payload))
				return mcp.NewToolResultText(text), nil
			},
		},
		{
			Tool: mcp.NewTool("create_row",
				mcp.WithDescription("Create a new row in a table"),
				mcp.WithString("table_id", mcp.Required(), mcp.Description("Table ID")),
				mcp.WithObject("data", mcp.Required(), mcp.Description("Row field values")),
				mcp.WithString("before_id", mcp.Description("Insert before this row ID")),
			),
			Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				tableID, err := req.RequireString("table_id")
				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}
				data, ok := req.GetArguments()["data"].(map[string]interface{})
				if !ok {
					return mcp.NewToolResultError("required argument \"data\" must be an object"), nil
				}
				body := make(map[string]interface{}, len(data)+1)
				for k, v := range data {
					body[k] = v
				}
				if beforeID := req.GetString("before_id", ""); beforeID != "" {
					body["before_id"] = beforeID
				}
				payload, err := c.Call(ctx, "POST", "/database/rows/table/"+tableID+"/", body)
				if err != nil {
					return mcp.NewToolResultError(fmt.Sprintf("Failed to create row: %v", err)), nil
				}
				return mcp.NewToolResultText("Row created successfully:\n" + prettyJSON(payload)), nil
			},
		},
		{
			Tool: mcp.NewTool("update_row",
				mcp.WithDescription("Update an existing row"),
				mcp.WithString("table_id", mcp.Required(), mcp.Description("Table ID")),
				mcp.WithString("row_id", mcp.Required(), mcp.Description("Row ID")),
				mcp.WithObject("data", mcp.Required(), mcp.Description("Updated field values")),
			),
			Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				tableID, err := req.RequireString("table_id")
				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}
				rowID, err := req.RequireString("row_id")
				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}
				data, ok := req.GetArguments()["data"].(map[string]interface{})
				if !ok {
					return mcp.NewToolResultError("required argument \"data\" must be an object"), nil
				}
				payload, err := c.Call(ctx, "PATCH", "/database/rows/table/"+tableID+"/"+rowID+"/", data)
				if err != nil {
					return mcp.NewToolResultError(fmt.Sprintf("Failed to update row: %v", err)), nil
				}
				return mcp.NewToolResultText("Row updated successfully:\n" + prettyJSON(payload)), nil
			},
		},
		{
			Tool: mcp.NewTool("delete_row",
				mcp.WithDescription("Delete a row from a table"),
				mcp.WithString("table_id", mcp.Required(), mcp.Description("Table ID")),
				mcp.WithString("row_id", mcp.Required(), mcp.Description("Row ID")),
			),
			Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				tableID, err := req.RequireString("table_id")
				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}
				rowID, err := req.RequireString("row_id")
				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}
				if _, err := c.Call(ctx, "DELETE", "/database/rows/table/"+tableID+"/"+rowID+"/", nil); err != nil {
					return mcp.NewToolResultError(fmt.Sprintf("Failed to delete row: %v", err)), nil
				}
				return mcp.NewToolResultText(fmt.Sprintf("Row %s deleted successfully from table %s", rowID, tableID)), nil
			},
		},
	}
}

// --- Helpers ---

// prettyJSON renders a payload as indented JSON for tool result text.
func prettyJSON(v interface{}) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// resultsList unwraps Baserow's paginated {"results": [...]} envelope,
// falling back to a bare array response.
func resultsList(payload interface{}) []interface{} {
	switch v := payload.(type) {
	case map[string]interface{}:
		if results, ok := v["results"].([]interface{}); ok {
			return results
		}
	case []interface{}:
		return v
	}
	return nil
}

// rowCount reads the "count" field of a paginated response.
func rowCount(payload interface{}) (int, bool) {
	m, ok := payload.(map[string]interface{})
	if !ok {
		return 0, false
	}
	count, ok := m["count"].(float64)
	if !ok {
		return 0, false
	}
	return int(count), true
}

// optionalString returns a pointer to the string value of the given argument,
// or nil if the argument is not present.
func optionalString(req mcp.CallToolRequest, key string) *string {
	if v, ok := req.GetArguments()[key]; ok {
		if s, ok := v.(string); ok {
			return &s
		}
	}
	return nil
}

// optionalInt64 returns a pointer to the int64 value of the given numeric
// argument, or nil if the argument is not present.
func optionalInt64(req mcp.CallToolRequest, key string) *int64 {
	if v, ok := req.GetArguments()[key]; ok {
		if f, ok := v.(float64); ok {
			i := int64(f)
			return &i
		}
	}
	return nil
}

// optionalFloat returns a pointer to the float64 value of the given numeric
// argument, or nil if the argument is not present.
func optionalFloat(req mcp.CallToolRequest, key string) *float64 {
	if v, ok := req.GetArguments()[key]; ok {
		if f, ok := v.(float64); ok {
			return &f
		}
	}
	return nil
}
