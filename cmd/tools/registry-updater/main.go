// cmd/tools/registry-updater/main.go
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/MathNerdzRule/dietary-menu-advisor/internal/common/errors"
	"github.com/MathNerdzRule/dietary-menu-advisor/pkg/registry"

	classifymenuitems "github.com/MathNerdzRule/dietary-menu-advisor/internal/workers/advisor/classify-menu-items"
	findrestaurantmenu "github.com/MathNerdzRule/dietary-menu-advisor/internal/workers/advisor/find-restaurant-menu"
	reversegeocode "github.com/MathNerdzRule/dietary-menu-advisor/internal/workers/advisor/reverse-geocode"
	searchnearbyrestaurants "github.com/MathNerdzRule/dietary-menu-advisor/internal/workers/advisor/search-nearby-restaurants"
)

// servedTaskTypes are the task types the worker-manager registers.
var servedTaskTypes = []string{
	reversegeocode.TaskType,
	findrestaurantmenu.TaskType,
	searchnearbyrestaurants.TaskType,
	classifymenuitems.TaskType,
}

var knownErrorCodes = map[errors.ErrorCode]bool{
	errors.ErrCodeInputValidationFailed:     true,
	errors.ErrCodeRestaurantNotFound:        true,
	errors.ErrCodeClassificationUnavailable: true,
	errors.ErrCodeAIRequestFailed:           true,
	errors.ErrCodeAITimeout:                 true,
	errors.ErrCodeLocationUnavailable:       true,
	errors.ErrCodePreferencesStorageFailed:  true,
	errors.ErrCodeBrokerUnavailable:         true,
	errors.ErrCodeInvalidTransition:         true,
	errors.ErrCodeInternal:                  true,
}

func main() {
	updateCmd := flag.NewFlagSet("update", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	listCmd := flag.NewFlagSet("list", flag.ExitOnError)

	updatePath := updateCmd.String("path", "configs/activity-registry.json", "Path to registry file")
	idUpdate := updateCmd.String("id", "", "Activity ID to update")
	field := updateCmd.String("field", "", "Field to update (version, timeout, retries, ...)")
	value := updateCmd.String("value", "", "New value for the field")

	validatePath := validateCmd.String("path", "configs/activity-registry.json", "Path to registry file")
	listPath := listCmd.String("path", "configs/activity-registry.json", "Path to registry file")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "update":
		updateCmd.Parse(os.Args[2:])
		if *idUpdate == "" || *field == "" || *value == "" {
			fmt.Println("Error: id, field, and value are required for update.")
			updateCmd.Usage()
			os.Exit(1)
		}
		if err := updateActivity(*updatePath, *idUpdate, *field, *value, time.Now()); err != nil {
			fmt.Printf("Error updating activity: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Updated activity %s, field %s to %s\n", *idUpdate, *field, *value)

	case "validate":
		validateCmd.Parse(os.Args[2:])
		reg, err := registry.LoadRegistry(*validatePath)
		if err != nil {
			fmt.Printf("Registry validation failed: %v\n", err)
			os.Exit(1)
		}
		problems := validateRegistry(reg)
		for _, p := range problems {
			fmt.Println("  " + p)
		}
		if len(problems) > 0 {
			fmt.Printf("Registry validation failed with %d problem(s).\n", len(problems))
			os.Exit(1)
		}
		fmt.Printf("Registry validation passed. Found %d activities.\n", len(reg.Activities))

	case "list":
		listCmd.Parse(os.Args[2:])
		reg, err := registry.LoadRegistry(*listPath)
		if err != nil {
			fmt.Printf("Error loading registry: %v\n", err)
			os.Exit(1)
		}
		for _, a := range reg.Activities {
			fmt.Printf("%-28s %-8s timeout=%-5s retries=%d\n", a.TaskType, a.Version, a.Timeout, a.Retries)
		}

	case "help":
		fallthrough
	default:
		help()
	}
}

func updateActivity(path, id, field, value string, now time.Time) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	a := findActivity(reg, id)
	if a == nil {
		return fmt.Errorf("activity with ID %s not found", id)
	}
	switch field {
	case "version":
		a.Version = value
	case "displayName":
		a.DisplayName = value
	case "description":
		a.Description = value
	case "category":
		a.Category = value
	case "timeout":
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid timeout value: %w", err)
		}
		a.Timeout = value
	case "retries":
		retries, err := strconv.Atoi(value)
		if err != nil || retries < 0 {
			return fmt.Errorf("invalid retries value %q", value)
		}
		a.Retries = retries
	default:
		return fmt.Errorf("unknown field: %s", field)
	}

	reg.LastUpdated = now.Format("2006-01-02")
	return saveRegistry(reg, path)
}

func findActivity(reg *registry.ActivityRegistry, id string) *registry.Activity {
	for i := range reg.Activities {
		if reg.Activities[i].ID == id {
			return &reg.Activities[i]
		}
	}
	return nil
}

// validateRegistry returns one line per problem found.
func validateRegistry(reg *registry.ActivityRegistry) []string {
	var problems []string
	if len(reg.Activities) == 0 {
		return []string{"registry contains no activities"}
	}

	ids := make(map[string]bool)
	for _, a := range reg.Activities {
		if a.ID == "" {
			problems = append(problems, "activity missing required field: id")
			continue
		}
		if ids[a.ID] {
			problems = append(problems, fmt.Sprintf("duplicate activity ID: %s", a.ID))
		}
		ids[a.ID] = true

		if a.DisplayName == "" {
			problems = append(problems, fmt.Sprintf("%s: missing displayName", a.ID))
		}
		if _, err := time.ParseDuration(a.Timeout); err != nil {
			problems = append(problems, fmt.Sprintf("%s: invalid timeout %q", a.ID, a.Timeout))
		}
		for _, code := range a.ErrorCodes {
			if !knownErrorCodes[errors.ErrorCode(code)] {
				problems = append(problems, fmt.Sprintf("%s: unknown error code %s", a.ID, code))
			}
		}
		for name, schema := range map[string]map[string]interface{}{"inputSchema": a.InputSchema, "outputSchema": a.OutputSchema} {
			if schema == nil {
				continue
			}
			if _, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema)); err != nil {
				problems = append(problems, fmt.Sprintf("%s: %s does not compile: %v", a.ID, name, err))
			}
		}
	}

	for _, taskType := range servedTaskTypes {
		if _, ok := reg.Lookup(taskType); !ok {
			problems = append(problems, fmt.Sprintf("no activity registered for worker %s", taskType))
		}
	}
	sort.Strings(problems)
	return problems
}

func saveRegistry(reg *registry.ActivityRegistry, path string) error {
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}

func help() {
	fmt.Print(`
Usage: registry-updater <command> [flags]

Commands:
  list      List registered activities
  update    Update an existing activity's field
  validate  Check the registry against the advisor workers
  help      Show this help message

Examples:
  registry-updater update -id classify-menu-items -field timeout -value 120s
  registry-updater validate -path configs/activity-registry.json

`)
}
