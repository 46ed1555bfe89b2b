package cmd

import (
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/neoromantic/telegram-sync-cli/internal/apperror"
)

// blockedSQLVerbs are statement keywords sqlCmd refuses, keeping the
// console read-only over cache.db (spec §6's "sql" verb is a query
// console, not a migration tool).
var blockedSQLVerbs = []string{
	"insert", "update", "delete", "drop", "alter", "create", "attach", "pragma", "vacuum", "reindex",
}

var sqlWordPattern = regexp.MustCompile(`[a-z0-9_]+`)

// containsSQLVerb reports whether verb appears as a whole word in query,
// so column names like created_at/updated_at don't collide with the
// create/update keywords they merely contain.
func containsSQLVerb(query, verb string) bool {
	for _, word := range sqlWordPattern.FindAllString(query, -1) {
		if word == verb {
			return true
		}
	}
	return false
}

var sqlCmd = &cobra.Command{
	Use:   "sql <query>",
	Short: "Run a read-only SELECT against cache.db",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSQLQuery(cmd, args[0])
	},
}

var sqlPrintSchemaCmd = &cobra.Command{
	Use:   "print-schema",
	Short: "Print cache.db's schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSQLQuery(cmd, "SELECT name, sql FROM sqlite_master WHERE type IN ('table','index')")
	},
}

func runSQLQuery(cmd *cobra.Command, query string) error {
	normalized := strings.ToLower(strings.TrimSpace(query))
	if !strings.HasPrefix(normalized, "select") {
		return apperror.New(apperror.CodeSQLWriteNotAllowed, "only SELECT statements are allowed")
	}
	for _, verb := range blockedSQLVerbs {
		if containsSQLVerb(normalized, verb) {
			return apperror.New(apperror.CodeSQLOperationBlocked, "statement contains a blocked keyword: "+verb)
		}
	}

	cacheStore, err := openCacheStore()
	if err != nil {
		return err
	}
	defer cacheStore.Close()

	rows, err := cacheStore.DB().QueryContext(cmd.Context(), query)
	if err != nil {
		if strings.Contains(err.Error(), "no such table") {
			return apperror.Wrap(apperror.CodeSQLTableNotFound, "table not found", err)
		}
		return apperror.Wrap(apperror.CodeSQLSyntaxError, "query failed", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return err
	}

	var results []map[string]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return err
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			row[col] = values[i]
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	printResult(results)
	return nil
}

func init() {
	rootCmd.AddCommand(sqlCmd)
	sqlCmd.AddCommand(sqlPrintSchemaCmd)
}
