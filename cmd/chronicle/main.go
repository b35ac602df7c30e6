package main

import (
	"fmt"
	"os"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	var err error
	switch os.Args[1] {
	case "ingest":
		err = runIngest(os.Args[2:])
	case "add":
		err = runAdd(os.Args[2:])
	case "list":
		err = runList(os.Args[2:])
	case "show":
		err = runShow(os.Args[2:])
	case "journey":
		err = runJourney(os.Args[2:])
	case "search":
		err = runSearch(os.Args[2:])
	case "merge":
		err = runMerge(os.Args[2:])
	case "rename":
		err = runRename(os.Args[2:])
	case "edit":
		err = runEdit(os.Args[2:])
	case "category":
		err = runCategory(os.Args[2:])
	case "stats":
		err = runStats(os.Args[2:])
	case "config":
		err = runConfig(os.Args[2:])
	case "serve":
		err = runServe(os.Args[2:])
	case "version", "--version", "-v":
		fmt.Printf("chronicle %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`chronicle %s — personal medical archive organizer

Usage:
  chronicle <command> [arguments]

Commands:
  ingest <path>...    Ingest note archive exports (.enex) into the store
  add                 Add a manual event (--title, --date, --content)
  list                List events chronologically
  show <id>           Show one event in full
  journey             Show the diagnostic journey
  search <query>      Search the archive (keyword + semantic when configured)
  merge <keep> <dup>  Merge a duplicate event into another
  rename <kind> <old> <new>
                      Rename a person or facility everywhere
  edit <id>           Edit an event's title, date, content, or specialty
  category <list|set|unset|import>
                      Curate care-category overrides
  stats               Show archive statistics
  config              Show resolved settings and where each came from
  serve               Serve the archive over MCP on stdio
  version             Print version

Common Flags:
  --config <path>     Config file (default ~/.chronicle/config.yaml)
  --db <path>         Database path
  --embed <spec>      Embedding provider/model for semantic search
  --patient <path>    Patient profile YAML
  --index <path>      Semantic index path
  --attachments <dir> Attachment materialization directory

Flags:
  -h, --help          Show this help message
  -v, --version       Print version
`, version)
}
