package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/martinemde/prospector/config"
	"github.com/martinemde/prospector/httplimit"
	"github.com/martinemde/prospector/llmclient"
	"github.com/martinemde/prospector/pipeline"
	"github.com/martinemde/prospector/render"
	"github.com/martinemde/prospector/websearch"
)

var runCmd = &cobra.Command{
	Use:   "run <service_name> <country>",
	Short: "Run a procurement discovery for a service in a country",
	Long:  "Execute the full discovery pipeline: clarify the request, describe the service, search vendors and partners, benchmark pricing, and compile the report.",
	Args:  cobra.ExactArgs(2),
	RunE:  runDiscovery,
}

func init() {
	runCmd.Flags().String("details", "", "Additional free-text details about the request")
	runCmd.Flags().StringP("output", "o", "", "Output file; format chosen by extension (.json, .md, .html)")

	rootCmd.AddCommand(runCmd)
}

func runDiscovery(cmd *cobra.Command, args []string) error {
	serviceName, country := args[0], args[1]
	details, _ := cmd.Flags().GetString("details")
	output, _ := cmd.Flags().GetString("output")
	verbose := viper.GetBool("verbose")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration: %w", err)
	}

	// One limited HTTP client shared by both adapters keeps total
	// in-flight requests under the configured ceiling.
	httpc := httplimit.NewClient(cfg.MaxConcurrentRequests, cfg.LLM.Timeout)
	llm := llmclient.New(cfg.LLM, httpc)
	search := websearch.NewTavily(cfg.Search.TavilyAPIKey, cfg.Search.Depth, websearch.WithHTTPClient(httpc))

	emitter := pipeline.NewEventEmitter()
	emitter.On(terminalEventListener(verbose))

	engine := pipeline.New(cfg, llm, search, pipeline.WithEmitter(emitter))

	fmt.Fprintf(os.Stderr, "[prospector] Starting discovery: %s (%s)\n", serviceName, country)
	state := engine.Run(context.Background(), pipeline.Request{
		ServiceName: serviceName,
		Country:     country,
		Details:     details,
	})

	if output != "" {
		if err := render.WriteFile(state, output); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "[prospector] Report written to %s\n", output)
	}

	printSummary(state)

	if state.Status != pipeline.StatusCompleted {
		return fmt.Errorf("discovery failed: %s", state.LastError)
	}
	return nil
}

// terminalEventListener prints pipeline events to stderr. Stage chatter is
// shown only in verbose mode; failures always print.
func terminalEventListener(verbose bool) func(pipeline.Event) {
	return func(ev pipeline.Event) {
		switch ev.Type {
		case pipeline.EventStageFailed, pipeline.EventRunFailed:
			fmt.Fprintf(os.Stderr, "[prospector] %s: %v\n", ev.Type, ev.Data["error"])
		default:
			if verbose {
				fmt.Fprintf(os.Stderr, "[prospector] %s %v\n", ev.Type, ev.Data)
			}
		}
	}
}

func printSummary(state *pipeline.State) {
	fmt.Fprintf(os.Stderr, "\nRun %s: %s\n", state.RunID, strings.ToUpper(string(state.Status)))
	fmt.Fprintf(os.Stderr, "Stage attempts: %d\n", len(state.StageHistory))
	if state.Report != nil {
		fmt.Fprintf(os.Stderr, "Vendors: %d, Partners: %d\n",
			len(state.Report.VendorRankings), len(state.Report.PartnerRecommendations))
		fmt.Fprintf(os.Stderr, "\n%s\n", state.Report.ExecutiveSummary)
	}
}
