package main

import (
	"flag"
	"log"
	"os"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/david/eventfeed/internal/ingest"
)

func main() {
	file := flag.String("file", "data.json", "Dataset file to inspect")
	flag.Parse()

	ds, err := ingest.ReadDataset(*file)
	if err != nil {
		log.Fatal(err)
	}

	bySource := map[string]int{}
	byTag := map[string]int{}
	for _, it := range ds.Items {
		bySource[it.Source]++
		for _, tag := range it.Tags {
			byTag[tag]++
		}
	}

	log.Printf("%s: %d items, generated %s", *file, len(ds.Items), ds.Meta.GeneratedAt)
	render("Source", bySource)
	render("Tag", byTag)
}

// render prints counts, largest first.
func render(label string, counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{label, "Items"})
	for _, k := range keys {
		t.AppendRow(table.Row{k, counts[k]})
	}
	t.Render()
}
