// cmd/tools/worker-generator/main.go
package main

import (
	"bytes"
	"flag"
	"fmt"
	"go/format"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/MathNerdzRule/dietary-menu-advisor/pkg/registry"
)

const modulePath = "github.com/MathNerdzRule/dietary-menu-advisor"

// WorkerData holds data for templates
type WorkerData struct {
	Module       string
	Name         string
	PackageName  string
	Dir          string
	TaskType     string
	Description  string
	InputFields  []Field
	OutputFields []Field
	Timeout      time.Duration
	ErrorCodes   []string
}

// Field is one struct field derived from a JSON schema property.
type Field struct {
	Name    string
	Type    string
	JSONKey string
	Omit    bool
}

// schemaFields extracts struct fields from a JSON schema object, sorted by
// property name. Properties not listed as required get omitempty.
func schemaFields(schema map[string]interface{}) []Field {
	props, _ := schema["properties"].(map[string]interface{})
	required := map[string]bool{}
	if req, ok := schema["required"].([]interface{}); ok {
		for _, r := range req {
			if s, ok := r.(string); ok {
				required[s] = true
			}
		}
	}

	fields := make([]Field, 0, len(props))
	for prop, details := range props {
		d, _ := details.(map[string]interface{})
		fields = append(fields, Field{
			Name:    upperFirst(prop),
			Type:    goTypeFromJSONType(d["type"]),
			JSONKey: prop,
			Omit:    !required[prop],
		})
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].JSONKey < fields[j].JSONKey })
	return fields
}

// goTypeFromJSONType maps JSON schema types to Go types
func goTypeFromJSONType(jsonType interface{}) string {
	jt, _ := jsonType.(string)
	switch jt {
	case "string":
		return "string"
	case "number":
		return "float64"
	case "integer":
		return "int"
	case "boolean":
		return "bool"
	case "object":
		return "map[string]interface{}"
	case "array":
		return "[]interface{}"
	default:
		return "interface{}"
	}
}

// upperFirst makes the first character uppercase
func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func newWorkerData(a *registry.Activity) (WorkerData, error) {
	timeout := 60 * time.Second
	if a.Timeout != "" {
		d, err := time.ParseDuration(a.Timeout)
		if err != nil {
			return WorkerData{}, fmt.Errorf("activity %s: invalid timeout %q: %w", a.ID, a.Timeout, err)
		}
		timeout = d
	}
	return WorkerData{
		Module:       modulePath,
		Name:         a.DisplayName,
		PackageName:  strings.ReplaceAll(a.ID, "-", ""),
		Dir:          filepath.Join(strings.ToLower(a.Category), a.ID),
		TaskType:     a.TaskType,
		Description:  a.Description,
		InputFields:  schemaFields(a.InputSchema),
		OutputFields: schemaFields(a.OutputSchema),
		Timeout:      timeout,
		ErrorCodes:   a.ErrorCodes,
	}, nil
}

var templates = map[string]string{
	"models.go":  modelsTemplate,
	"config.go":  configTemplate,
	"handler.go": handlerTemplate,
}

// render executes every template and gofmts the result.
func render(data WorkerData) (map[string][]byte, error) {
	out := make(map[string][]byte, len(templates))
	for filename, tmplStr := range templates {
		tmpl, err := template.New(filename).Parse(tmplStr)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", filename, err)
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return nil, fmt.Errorf("execute template %s: %w", filename, err)
		}
		src, err := format.Source(buf.Bytes())
		if err != nil {
			return nil, fmt.Errorf("format %s: %w", filename, err)
		}
		out[filename] = src
	}
	return out, nil
}

func main() {
	activity := flag.String("activity", "", "Activity ID from registry (e.g., classify-menu-items)")
	outputDir := flag.String("output", "./internal/workers/", "Output directory for the generated worker")
	registryPath := flag.String("registry", "configs/activity-registry.json", "Path to the activity registry JSON file")
	force := flag.Bool("force", false, "Overwrite existing files")
	flag.Parse()

	if *activity == "" {
		fmt.Println("Usage: worker-generator --activity <id> --output <dir> [--registry <path>]")
		os.Exit(1)
	}

	reg, err := registry.LoadRegistry(*registryPath)
	if err != nil {
		fmt.Printf("Error loading registry from %s: %v\n", *registryPath, err)
		os.Exit(1)
	}

	var found *registry.Activity
	for i := range reg.Activities {
		if reg.Activities[i].ID == *activity {
			found = &reg.Activities[i]
			break
		}
	}
	if found == nil {
		fmt.Printf("Activity '%s' not found in registry %s\n", *activity, *registryPath)
		os.Exit(1)
	}

	data, err := newWorkerData(found)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	files, err := render(data)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	workerDir := filepath.Join(*outputDir, data.Dir)
	if err := os.MkdirAll(workerDir, 0755); err != nil {
		fmt.Printf("Error creating directory: %v\n", err)
		os.Exit(1)
	}
	for filename, src := range files {
		path := filepath.Join(workerDir, filename)
		if _, err := os.Stat(path); err == nil && !*force {
			fmt.Printf("Skipping existing %s\n", path)
			continue
		}
		if err := os.WriteFile(path, src, 0644); err != nil {
			fmt.Printf("Error writing %s: %v\n", path, err)
			os.Exit(1)
		}
		fmt.Printf("Generated %s\n", path)
	}

	fmt.Printf("\nWorker scaffold generated at: %s\n", workerDir)
	fmt.Printf("Next: implement execute in handler.go, add handler_test.go and register the worker in cmd/worker-manager/main.go\n")
}
