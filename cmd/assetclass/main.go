// Command assetclass classifies the assets in a saved snapshot document and
// prints their display status. With no arguments it drops into an interactive
// prompt for looking up individual assets by key (fuzzy matching included).
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"assetwatch/asset"
	"assetwatch/feed"
	"assetwatch/ui"
)

func main() {
	dataPath := flag.String("data", "data/snapshot.json", "path to a snapshot JSON document")
	list := flag.Bool("list", false, "print every classified asset and exit")
	flag.Parse()

	body, err := os.ReadFile(*dataPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading snapshot: %v\n", err)
		os.Exit(1)
	}
	snap, err := feed.DecodeSnapshot(body)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error decoding snapshot: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("loaded snapshot with %d assets\n", len(snap.Entries))

	if *list {
		for _, entry := range snap.Entries {
			printEntry(entry)
		}
		return
	}

	keys := make([]string, 0, len(snap.Entries))
	byKey := make(map[string]feed.Entry, len(snap.Entries))
	for _, entry := range snap.Entries {
		key := entry.Definition.Key.String()
		keys = append(keys, key)
		byKey[key] = entry
	}

	fmt.Println("enter asset keys (Ctrl+C to quit)")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}
		matches := ui.RankMatches(query, keys)
		if len(matches) == 0 {
			fmt.Println("no matching asset")
			continue
		}
		for _, idx := range matches {
			printEntry(byKey[keys[idx]])
		}
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "input error: %v\n", err)
	}
}

func printEntry(entry feed.Entry) {
	status := asset.Classify(entry.Definition, entry.Live)
	line := fmt.Sprintf("%s -> %s", entry.Definition.Key.String(), status.Kind)
	if status.Label != "" {
		line += fmt.Sprintf(" (%s)", status.Label)
	}
	if status.Overdue {
		line += fmt.Sprintf(" overdue=%.0fm", status.MinutesLate)
	}
	if status.RunID != "" {
		line += " run=" + status.RunID
	}
	if status.Day != "" {
		line += " day=" + status.Day
	}
	if status.Cause != nil {
		line += fmt.Sprintf(" cause=%q", status.Cause.Reason)
	}
	if asset.Suppressed(entry.Definition) {
		line += " [suppressed]"
	}
	if rollup, ok := asset.RollupPartitions(entry.Definition, entry.Live); ok {
		if rollup.Loading {
			line += " partitions=loading"
		} else {
			line += fmt.Sprintf(" partitions=%q", rollup.Headline)
		}
	}
	fmt.Println(line)
}
