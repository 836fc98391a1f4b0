// Command schema writes json schema of the export document, used by go generate
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/umputun/attendo/app/export"
)

func main() {
	data, err := json.MarshalIndent(export.Schema(), "", "  ")
	if err != nil {
		log.Fatalf("failed to marshal schema: %v", err)
	}

	outputPath := "schema.json"
	if len(os.Args) > 1 {
		outputPath = os.Args[1]
	}
	if err := os.WriteFile(outputPath, append(data, '\n'), 0o600); err != nil { //nolint:gosec // schema file is not sensitive
		log.Fatalf("failed to write schema file: %v", err)
	}
	fmt.Printf("schema written to %s\n", outputPath)
}
