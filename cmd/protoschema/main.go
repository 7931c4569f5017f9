// Command protoschema emits a JSON schema for the prototype catalog
// document, reflected from the Go types. The schema the loader embeds
// is maintained by hand on top of this output; it adds constraints the
// struct tags cannot express, such as the sub_kind enumeration. Diff
// this tool's output against the embedded schema after changing the
// catalog types.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"

	"hexworld.dev/internal/assets/protodef"
)

func main() {
	out := flag.String("out", "", "output file (default stdout)")
	flag.Parse()

	r := jsonschema.Reflector{
		ExpandedStruct:             true,
		RequiredFromJSONSchemaTags: true,
	}
	schema := r.Reflect(&protodef.FileDoc{})

	b, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, "marshal:", err)
		os.Exit(1)
	}
	b = append(b, '\n')

	if *out == "" {
		_, _ = os.Stdout.Write(b)
		return
	}
	if err := os.WriteFile(*out, b, 0o644); err != nil {
		fmt.Fprintln(os.Stderr, "write:", err)
		os.Exit(1)
	}
}
