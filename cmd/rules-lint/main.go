// rules-lint validates a category rule file and prints the resolved bucket
// order, so rule edits can be checked before the worker loads them.
package main

import (
	"flag"
	"fmt"
	"os"

	"drawsum/internal/rules"
)

func main() {
	var path string
	flag.StringVar(&path, "f", "", "path to a rules YAML file (empty validates the embedded defaults)")
	flag.Parse()

	ruleSet, opts, err := rules.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid rules: %v\n", err)
		os.Exit(1)
	}

	source := path
	if source == "" {
		source = "(embedded defaults)"
	}
	fmt.Printf("rules OK: %s\n", source)
	fmt.Printf("buckets, in match order:\n")
	for i, rule := range ruleSet.Rules() {
		fmt.Printf("  %2d. %s\n", i+1, rule.Bucket)
	}
	fmt.Printf("options: draw_equality=%s suspicious_ceiling_cents=%d top_unmapped=%d\n",
		opts.DrawEquality, opts.SuspiciousCeilingCents, opts.TopUnmapped)
}
