package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/coolbeans/statute/internal/logger"
	"github.com/coolbeans/statute/pkg/feed"
	"github.com/coolbeans/statute/pkg/provision"
	"github.com/coolbeans/statute/pkg/retrieve"
	"github.com/coolbeans/statute/pkg/status"
	"github.com/coolbeans/statute/pkg/toc"
	"github.com/coolbeans/statute/pkg/transport"
	"github.com/coolbeans/statute/pkg/ukleg"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "statute",
		Short: "UK legislation acquisition and structuring engine",
		Long: `Statute acquires UK legislation from legislation.gov.uk and structures
it for display and navigation.

It provides:
  - Search feed normalization with canonical document identifiers
  - Resilient document retrieval across revision URL shapes
  - Markup sanitization that strips site chrome
  - Table-of-contents construction from legislative XML
  - Single-provision extraction with amendment annotations
  - Revision status classification`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("verbose", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("config", "", "Retrieval config file (YAML)")

	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(fetchCmd())
	rootCmd.AddCommand(tocCmd())
	rootCmd.AddCommand(provisionCmd())
	rootCmd.AddCommand(statusCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildLogger constructs the process logger from persistent flags.
func buildLogger(cmd *cobra.Command) *logger.Logger {
	verbose, _ := cmd.Flags().GetBool("verbose")
	level := "info"
	if verbose {
		level = "debug"
	}
	return logger.New(logger.Config{Level: level, Pretty: true, Output: os.Stderr})
}

// buildRetriever wires the shared fetch/retrieve stack used by most commands.
func buildRetriever(cmd *cobra.Command, log *logger.Logger) (*retrieve.Retriever, transport.Fetcher, error) {
	configPath, _ := cmd.Flags().GetString("config")

	retrieveConfig := retrieve.DefaultConfig()
	if configPath != "" {
		loaded, err := retrieve.LoadConfig(configPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load config: %w", err)
		}
		retrieveConfig = loaded
	}

	fetcher := transport.NewClient(transport.DefaultConfig())
	retriever := retrieve.NewRetriever(fetcher, retrieveConfig, log)
	return retriever, fetcher, nil
}

func searchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search legislation.gov.uk and normalize the results",
		Long: `Query the legislation.gov.uk Atom search feed and print normalized
results with canonical document URLs.

Example:
  statute search "data protection"
  statute search "environment" --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatStr, _ := cmd.Flags().GetString("format")
			log := buildLogger(cmd)

			fetcher := transport.NewClient(transport.DefaultConfig())
			searchURL := ukleg.SearchURL(args[0])
			log.Debug().Str("url", searchURL).Msg("fetching search feed")

			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()

			payload, err := fetcher.Fetch(ctx, searchURL)
			if err != nil {
				return fmt.Errorf("search request failed: %w", err)
			}
			if !payload.OK() {
				return fmt.Errorf("search returned status %d", payload.StatusCode)
			}

			results, err := feed.Normalize(payload.Body)
			if err != nil {
				return fmt.Errorf("failed to normalize search feed: %w", err)
			}

			if formatStr == "json" {
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")
				return encoder.Encode(results)
			}

			fmt.Printf("Found %d result(s)\n\n", len(results))
			for i, result := range results {
				fmt.Printf("%d. %s\n", i+1, result.Title)
				if result.CanonicalURL != "" {
					fmt.Printf("   %s\n", result.CanonicalURL)
				}
				if result.Snippet != "" {
					fmt.Printf("   %s\n", result.Snippet)
				}
				fmt.Println()
			}
			return nil
		},
	}

	cmd.Flags().StringP("format", "f", "text", "Output format (text, json)")
	return cmd
}

func fetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch [document-url]",
		Short: "Fetch a legislation document body and outline",
		Long: `Fetch a legislation document, trying revision URL variants in order,
and build its table of contents. Body and outline are fetched
concurrently.

Example:
  statute fetch https://www.legislation.gov.uk/ukpga/2018/12
  statute fetch ukpga/2018/12 --output body.html`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputPath, _ := cmd.Flags().GetString("output")
			log := buildLogger(cmd)

			identifier, err := ukleg.ParseIdentifier(args[0])
			if err != nil {
				return fmt.Errorf("unrecognized document URL: %w", err)
			}

			retriever, fetcher, err := buildRetriever(cmd, log)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()

			fmt.Printf("Fetching %s\n", identifier.String())
			startTime := time.Now()

			type bodyResult struct {
				document *retrieve.Document
				err      error
			}
			type outlineResult struct {
				outline *toc.Outline
				err     error
			}

			bodyCh := make(chan bodyResult, 1)
			outlineCh := make(chan outlineResult, 1)

			go func() {
				document, fetchErr := retriever.Retrieve(ctx, identifier)
				bodyCh <- bodyResult{document: document, err: fetchErr}
			}()

			go func() {
				payload, fetchErr := fetcher.Fetch(ctx, identifier.OutlineURL())
				if fetchErr != nil {
					outlineCh <- outlineResult{err: fetchErr}
					return
				}
				if !payload.OK() {
					outlineCh <- outlineResult{err: fmt.Errorf("outline returned status %d", payload.StatusCode)}
					return
				}
				outline, buildErr := toc.Build(payload.Body)
				outlineCh <- outlineResult{outline: outline, err: buildErr}
			}()

			body := <-bodyCh
			outline := <-outlineCh

			if body.err != nil {
				var exhausted *retrieve.ExhaustedError
				if errors.As(body.err, &exhausted) {
					fmt.Fprintf(os.Stderr, "Could not retrieve content. View it at: %s\n", exhausted.BaseURL)
					for _, attempt := range exhausted.Attempts {
						fmt.Fprintf(os.Stderr, "  %-12s %s\n", attempt.Outcome, attempt.URL)
					}
				}
				return fmt.Errorf("document retrieval failed: %w", body.err)
			}

			fmt.Printf("Retrieved %d bytes from %s in %v\n",
				len(body.document.Body), body.document.SourceURL, time.Since(startTime))

			if outline.err != nil {
				fmt.Fprintf(os.Stderr, "warning: outline unavailable: %v\n", outline.err)
			} else {
				docStatus := status.Classify(body.document.SourceURL, outline.outline.Meta)
				fmt.Printf("Status: %s\n", docStatus.Label)
				fmt.Printf("Contents entries: %d\n", len(outline.outline.Roots))
			}

			if outputPath != "" {
				if err := os.WriteFile(outputPath, []byte(body.document.Body), 0644); err != nil {
					return fmt.Errorf("failed to write output: %w", err)
				}
				fmt.Printf("Body saved to: %s\n", outputPath)
			}
			return nil
		},
	}

	cmd.Flags().StringP("output", "o", "", "Write the document body to this file")
	return cmd
}

func tocCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "toc [document-url]",
		Short: "Build the table of contents for a document",
		Long: `Fetch the document's contents XML and print its hierarchical table of
contents.

Example:
  statute toc https://www.legislation.gov.uk/ukpga/2018/12
  statute toc ukpga/2018/12 --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatStr, _ := cmd.Flags().GetString("format")
			log := buildLogger(cmd)

			identifier, err := ukleg.ParseIdentifier(args[0])
			if err != nil {
				return fmt.Errorf("unrecognized document URL: %w", err)
			}

			fetcher := transport.NewClient(transport.DefaultConfig())
			log.Debug().Str("url", identifier.OutlineURL()).Msg("fetching contents XML")

			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()

			payload, err := fetcher.Fetch(ctx, identifier.OutlineURL())
			if err != nil {
				return fmt.Errorf("outline request failed: %w", err)
			}
			if !payload.OK() {
				return fmt.Errorf("outline returned status %d", payload.StatusCode)
			}

			outline, err := toc.Build(payload.Body)
			if err != nil {
				return fmt.Errorf("failed to build table of contents: %w", err)
			}

			if formatStr == "json" {
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")
				return encoder.Encode(outline)
			}

			if outline.Meta != nil && outline.Meta.Title != "" {
				fmt.Printf("%s\n\n", outline.Meta.Title)
			}
			printOutlineNodes(outline.Roots, 0)
			return nil
		},
	}

	cmd.Flags().StringP("format", "f", "text", "Output format (text, json)")
	return cmd
}

func printOutlineNodes(nodes []*toc.Node, depth int) {
	for _, node := range nodes {
		for i := 0; i < depth; i++ {
			fmt.Print("  ")
		}
		if node.Number != "" {
			fmt.Printf("%s  %s", node.Number, node.Title)
		} else {
			fmt.Print(node.Title)
		}
		if node.Status != "" {
			fmt.Printf(" [%s]", node.Status)
		}
		fmt.Println()
		printOutlineNodes(node.Children, depth+1)
	}
}

func provisionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "provision [provision-url]",
		Short: "Fetch and render a single provision",
		Long: `Fetch one provision's XML fragment, resolve its citations, and print
the rendered body with any amendment annotations.

Example:
  statute provision https://www.legislation.gov.uk/ukpga/2018/12/section/3
  statute provision ukpga/2018/12/section/3 --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatStr, _ := cmd.Flags().GetString("format")
			log := buildLogger(cmd)

			fetcher := transport.NewClient(transport.DefaultConfig())
			processor := provision.NewProcessor(fetcher, log)

			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()

			provisionURI := args[0]
			if !strings.HasPrefix(provisionURI, "http") {
				provisionURI = ukleg.BaseURL + "/" + strings.TrimPrefix(provisionURI, "/")
			}

			node := &toc.Node{ID: provisionURI, DocumentURI: provisionURI}
			content, err := processor.Process(ctx, node)
			if err != nil {
				var fragmentErr *provision.FragmentError
				if errors.As(err, &fragmentErr) && fragmentErr.FallbackURL != "" {
					fmt.Fprintf(os.Stderr, "Unable to load the provision. View it at: %s\n", fragmentErr.FallbackURL)
				}
				return fmt.Errorf("provision processing failed: %w", err)
			}

			if formatStr == "json" {
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")
				return encoder.Encode(content)
			}

			fmt.Println(content.Body)
			if len(content.Notes) > 0 {
				fmt.Printf("\nAmendment notes (%d):\n", len(content.Notes))
				for _, note := range content.Notes {
					fmt.Printf("  %-4s [%s] %s\n", note.Title, note.Kind, note.Body)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringP("format", "f", "text", "Output format (text, json)")
	return cmd
}

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status [document-url]",
		Short: "Classify a document's revision status",
		Long: `Fetch the document's metadata and report whether it is the enacted
text, the latest revised text, or a revision with outstanding changes.

Example:
  statute status https://www.legislation.gov.uk/ukpga/2018/12
  statute status https://www.legislation.gov.uk/ukpga/2018/12/enacted`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatStr, _ := cmd.Flags().GetString("format")
			log := buildLogger(cmd)

			normalizedURL, err := ukleg.NormalizeURL(args[0])
			if err != nil {
				return fmt.Errorf("unrecognized document URL: %w", err)
			}
			identifier, err := ukleg.ParseIdentifier(normalizedURL)
			if err != nil {
				return fmt.Errorf("unrecognized document URL: %w", err)
			}

			fetcher := transport.NewClient(transport.DefaultConfig())
			log.Debug().Str("url", identifier.OutlineURL()).Msg("fetching metadata")

			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()

			var meta *toc.Metadata
			payload, err := fetcher.Fetch(ctx, identifier.OutlineURL())
			if err == nil && payload.OK() {
				if outline, buildErr := toc.Build(payload.Body); buildErr == nil {
					meta = outline.Meta
				}
			}

			docStatus := status.Classify(args[0], meta)

			if formatStr == "json" {
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")
				return encoder.Encode(docStatus)
			}

			fmt.Printf("Status:  %s\n", docStatus.Label)
			fmt.Printf("Code:    %s\n", docStatus.Code)
			fmt.Printf("Details: %s\n", docStatus.Tooltip)
			return nil
		},
	}

	cmd.Flags().StringP("format", "f", "text", "Output format (text, json)")
	return cmd
}
