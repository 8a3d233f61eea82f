package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	"grimoire_editor_agent/config"
	"grimoire_editor_agent/edits"
	"grimoire_editor_agent/generator"
	"grimoire_editor_agent/publisher"
	"grimoire_editor_agent/server"
)

var verbose bool

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	configPath := flag.String("config", "config/config.json", "path to config.json")
	serve := flag.Bool("serve", false, "start web server")
	addr := flag.String("addr", "", "http listen address when --serve (overrides config.server_addr)")
	docID := flag.String("doc", "", "Google Doc ID (overrides workspace.document_id)")
	sheetID := flag.String("sheet", "", "story bible sheet ID (overrides workspace.story_bible_sheet_id)")
	instruction := flag.String("instruction", "", "one-shot instruction for the editor")
	withManuscript := flag.Bool("manuscript", false, "quote the manuscript to the model")
	preview := flag.Bool("preview", false, "print a diff of the proposed edits without applying them")
	apply := flag.Bool("apply", false, "approve every proposed edit and apply it to the document")
	flag.BoolVar(&verbose, "v", false, "enable info logs")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal(err)
	}
	if *docID != "" {
		cfg.Workspace.DocumentID = *docID
	}
	if *sheetID != "" {
		cfg.Workspace.StoryBibleSheetID = *sheetID
	}

	ctx := context.Background()
	var (
		mutator edits.DocumentMutator
		reader  generator.ContextSource
		prober  server.StatusProber
	)
	ws, err := publisher.New(ctx, cfg.Google, verbose, log.Default())
	switch {
	case err == nil:
		mutator, reader, prober = ws, ws, ws
	case *serve:
		log.Printf("[WARN] google workspace unavailable, serving without connectors: %v", err)
		mutator = publisher.Offline{Err: err}
	default:
		fatal(err)
	}
	agent, err := buildAgent(cfg, mutator, reader)
	if err != nil {
		fatal(err)
	}

	// Web server mode
	if *serve {
		srv, err := server.New(agent, server.Options{
			DocumentID: cfg.Workspace.DocumentID,
			SheetID:    cfg.Workspace.StoryBibleSheetID,
			SheetRange: cfg.Workspace.StoryBibleRange,
			Format:     edits.Format(cfg.Edits.Format),
			Model:      cfg.LLM.Provider + ":" + cfg.LLM.Model,
			Prober:     prober,
			Logger:     log.Default(),
		})
		if err != nil {
			fatal(err)
		}
		listen := cfg.ServerAddr
		if *addr != "" {
			listen = *addr
		}
		log.Printf("Starting web server on %s", listen)
		if err := http.ListenAndServe(listen, srv.Routes()); err != nil {
			fatal(err)
		}
		return
	}

	if *instruction == "" || cfg.Workspace.DocumentID == "" {
		fatal(fmt.Errorf("--instruction and --doc (or workspace.document_id) are required without --serve"))
	}

	sess := generator.NewSession("cli", generator.Workspace{
		DocumentID: cfg.Workspace.DocumentID,
		SheetID:    cfg.Workspace.StoryBibleSheetID,
		SheetRange: cfg.Workspace.StoryBibleRange,
		Format:     edits.Format(cfg.Edits.Format),
	}, agent)

	log.Printf("[cli] document=%s instruction=%q", cfg.Workspace.DocumentID, *instruction)
	turn, err := sess.Send(ctx, *instruction, generator.ContextOptions{IncludeManuscript: *withManuscript})
	if err != nil {
		fatal(err)
	}
	fmt.Println(turn.Reply)
	fmt.Println()
	if turn.ParseFailure != "" {
		fmt.Fprintf(os.Stderr, "no edits could be read from the reply: %s\n", turn.ParseFailure)
		return
	}
	for i, d := range turn.Proposal.Directives {
		fmt.Printf("%2d. %q -> %q\n", i+1, d.Find, d.Replace)
	}

	if *preview {
		p, err := sess.Preview(ctx)
		if err != nil {
			fatal(err)
		}
		for _, l := range p.Lines {
			sign := "+"
			if l.Type == edits.LineRemoved {
				sign = "-"
			}
			fmt.Printf("%s %s\n", sign, l.Text)
		}
	}

	if !*apply {
		return
	}
	sess.ApproveAll(true)
	res, err := sess.Execute(ctx)
	if err != nil {
		fatal(err)
	}
	log.Printf("[cli] applied document=%s operations=%d occurrences=%d", res.DocumentID, res.Operations, res.OccurrencesChanged)
}

func buildAgent(cfg config.Config, mutator edits.DocumentMutator, reader generator.ContextSource) (*generator.Agent, error) {
	llm, err := buildLLM(cfg)
	if err != nil {
		return nil, err
	}
	exec, err := edits.NewExecutor(mutator, edits.WithTimeout(cfg.Google.Timeout()))
	if err != nil {
		return nil, err
	}
	pipeline, err := edits.NewPipeline(edits.Validator{RequireApproval: cfg.Edits.ApprovalRequired()}, exec, verbose, log.Default())
	if err != nil {
		return nil, err
	}
	opts := []generator.AgentOption{
		generator.WithExcerptChars(cfg.Workspace.ManuscriptExcerptChars),
		generator.WithLogger(log.Default()),
	}
	if reader != nil {
		opts = append(opts, generator.WithContextSource(reader))
	}
	return generator.NewAgent(llm, pipeline, opts...)
}

func buildLLM(cfg config.Config) (generator.LLMClient, error) {
	settings := &generator.LLMSettings{
		Provider:          cfg.LLM.Provider,
		Model:             cfg.LLM.Model,
		APIKey:            cfg.LLM.APIKey,
		BaseURL:           cfg.LLM.BaseURL,
		Referer:           cfg.LLM.Referer,
		Title:             cfg.LLM.Title,
		Timeout:           cfg.LLM.Timeout(),
		RequestsPerMinute: cfg.LLM.RequestsPerMinute,
	}
	switch cfg.LLM.Provider {
	case "mock":
		return generator.MockLLM{}, nil
	case "openrouter", "openai":
		return generator.NewOpenAILLMFromConfig(settings)
	case "deepseek":
		if cfg.LLM.BaseURL == "" {
			return nil, fmt.Errorf("llm provider deepseek requires base_url (OpenAI-compatible endpoint)")
		}
		return generator.NewOpenAILLMFromConfig(settings)
	default:
		return nil, fmt.Errorf("llm provider %s not supported", cfg.LLM.Provider)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
