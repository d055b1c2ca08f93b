package main

import (
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	userID       string
	settingsPath string
	useGenkit    bool

	docTitle    string
	acceptAll   bool
	interactive bool

	selectText  string
	instruction string

	altPrompt  string
	altCaption string

	rootCmd = &cobra.Command{
		Use:   "dal",
		Short: "An AI editor that reviews text and tracks every accepted change",
		Long: `dal sends a document to a language model for editorial review and
applies the suggestions you accept as tracked insertions and deletions.`,
		SilenceUsage: true,
	}

	// --- Review ---
	analyzeCmd = &cobra.Command{
		Use:   "analyze [file]",
		Short: "Analyze a text or markdown file and review the suggestions",
		Args:  cobra.ExactArgs(1),
		RunE:  runAnalyzeCommand, // Defined in cmd_analyze.go
	}
	refineCmd = &cobra.Command{
		Use:   "refine [file]",
		Short: "Rewrite a fragment of a file according to an instruction",
		Args:  cobra.ExactArgs(1),
		RunE:  runRefineCommand, // Defined in cmd_assist.go
	}
	altTextCmd = &cobra.Command{
		Use:   "alt-text [image_url]",
		Short: "Generate alt text for an image",
		Args:  cobra.ExactArgs(1),
		RunE:  runAltTextCommand, // Defined in cmd_assist.go
	}

	// --- History ---
	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "Browse saved analysis sessions",
	}
	historyListCmd = &cobra.Command{
		Use:   "list",
		Short: "List saved sessions, newest first",
		Args:  cobra.NoArgs,
		RunE:  runHistoryList, // Defined in cmd_history.go
	}
	historyShowCmd = &cobra.Command{
		Use:   "show [id]",
		Short: "Reopen a saved session and print its tracked text",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistoryShow, // Defined in cmd_history.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&userID, "user", "", "identity used for history (anonymous sessions are not saved)")
	rootCmd.PersistentFlags().StringVar(&settingsPath, "settings", "", "YAML file with tone and custom prompt (overrides DAL_SETTINGS_FILE)")
	rootCmd.PersistentFlags().BoolVar(&useGenkit, "genkit", false, "route model calls through Genkit")

	analyzeCmd.Flags().StringVar(&docTitle, "title", "", "document title stored with the history record")
	analyzeCmd.Flags().BoolVar(&acceptAll, "accept-all", false, "accept every suggestion that can be applied")
	analyzeCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "review suggestions one by one")

	refineCmd.Flags().StringVar(&selectText, "select", "", "fragment of the file to rewrite")
	refineCmd.Flags().StringVar(&instruction, "instruction", "", "how to rewrite the fragment")
	_ = refineCmd.MarkFlagRequired("select")
	_ = refineCmd.MarkFlagRequired("instruction")

	altTextCmd.Flags().StringVar(&altPrompt, "prompt", "", "extra instruction for the description")
	altTextCmd.Flags().StringVar(&altCaption, "caption", "", "current caption of the image")

	historyCmd.AddCommand(historyListCmd, historyShowCmd)
	rootCmd.AddCommand(analyzeCmd, refineCmd, altTextCmd, historyCmd)
}
