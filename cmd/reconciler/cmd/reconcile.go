package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"payment-reconciliation-service/internal/ingest"
	"payment-reconciliation-service/internal/matcher"
	"payment-reconciliation-service/internal/models"
	"payment-reconciliation-service/internal/report"
	apperrors "payment-reconciliation-service/pkg/errors"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the reconcile command
var (
	collectionFile string
	bankFiles      []string
	scope          string
	outputFormat   string
	outputFile     string

	// Matching configuration flags
	strictMatching     bool
	minReferenceDigits int
	amountTolerance    float64
)

// reconcileCmd represents the reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Match collection payments against bank statement lines",
	Long: `Reconcile compares field-collection payment records with bank statement
lines to identify matches and unmatched entries.

This command requires:
- A collection payment file (CSV format)
- One or more bank statement files (CSV format)

Examples:
  # Basic reconciliation
  reconciler reconcile --collection-file payments.csv --bank-files statement.csv

  # Multiple bank files under an explicit scope
  reconciler reconcile -c payments.csv -b bank1.csv,bank2.csv --scope acct-17

  # Custom output format and tighter matching
  reconciler reconcile -c payments.csv -b statement.csv \
    --output-format json --output-file report.json --strict

  # Override the amount tolerance window
  reconciler reconcile -c payments.csv -b statement.csv --amount-tolerance 2.5`,

	PreRunE: validateReconcileFlags,
	RunE:    runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	// Required flags
	reconcileCmd.Flags().StringVarP(&collectionFile, "collection-file", "c", "", "path to collection payment CSV file (required)")
	reconcileCmd.Flags().StringSliceVarP(&bankFiles, "bank-files", "b", []string{}, "comma-separated paths to bank statement CSV files (required)")

	// Scope flag
	reconcileCmd.Flags().StringVar(&scope, "scope", "default", "scope label for this reconciliation run")

	// Output flags
	reconcileCmd.Flags().StringVarP(&outputFormat, "output-format", "f", "console", "output format: console, json")
	reconcileCmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "output file path (default: stdout)")

	// Matching configuration flags
	reconcileCmd.Flags().BoolVar(&strictMatching, "strict", false, "use strict matching thresholds")
	reconcileCmd.Flags().IntVar(&minReferenceDigits, "min-reference-digits", 4, "minimum digits for a usable reference")
	reconcileCmd.Flags().Float64VarP(&amountTolerance, "amount-tolerance", "a", 0.0, "amount tolerance percentage override (0 keeps defaults)")

	// Mark required flags
	reconcileCmd.MarkFlagRequired("collection-file")
	reconcileCmd.MarkFlagRequired("bank-files")

	// Bind flags to viper
	viper.BindPFlag("collection-file", reconcileCmd.Flags().Lookup("collection-file"))
	viper.BindPFlag("bank-files", reconcileCmd.Flags().Lookup("bank-files"))
	viper.BindPFlag("scope", reconcileCmd.Flags().Lookup("scope"))
	viper.BindPFlag("output-format", reconcileCmd.Flags().Lookup("output-format"))
	viper.BindPFlag("output-file", reconcileCmd.Flags().Lookup("output-file"))
	viper.BindPFlag("strict", reconcileCmd.Flags().Lookup("strict"))
	viper.BindPFlag("min-reference-digits", reconcileCmd.Flags().Lookup("min-reference-digits"))
	viper.BindPFlag("amount-tolerance", reconcileCmd.Flags().Lookup("amount-tolerance"))
}

func validateReconcileFlags(cmd *cobra.Command, args []string) error {
	// Get values from viper (allows override from config file)
	collectionFile = viper.GetString("collection-file")
	bankFiles = viper.GetStringSlice("bank-files")
	scope = viper.GetString("scope")
	outputFormat = viper.GetString("output-format")
	outputFile = viper.GetString("output-file")
	strictMatching = viper.GetBool("strict")
	minReferenceDigits = viper.GetInt("min-reference-digits")
	amountTolerance = viper.GetFloat64("amount-tolerance")

	// Validate required flags
	if collectionFile == "" {
		return fmt.Errorf("collection-file is required")
	}
	if len(bankFiles) == 0 {
		return fmt.Errorf("at least one bank-file is required")
	}
	if strings.TrimSpace(scope) == "" {
		return fmt.Errorf("scope cannot be empty")
	}

	// Validate file existence
	if err := validateFileExists(collectionFile, "collection payment file"); err != nil {
		return err
	}

	for i, bankFile := range bankFiles {
		if err := validateFileExists(bankFile, fmt.Sprintf("bank file %d", i+1)); err != nil {
			return err
		}
	}

	// Validate output format
	if !report.OutputFormat(outputFormat).IsValid() {
		return fmt.Errorf("invalid output format '%s'. Valid formats: console, json", outputFormat)
	}

	// Validate matching overrides
	if minReferenceDigits < 1 {
		return fmt.Errorf("min-reference-digits must be positive")
	}
	if amountTolerance < 0.0 || amountTolerance > 100.0 {
		return fmt.Errorf("amount tolerance must be between 0.0 and 100.0")
	}

	// Validate output file directory exists if specified
	if outputFile != "" {
		dir := filepath.Dir(outputFile)
		if dir != "." {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				return fmt.Errorf("output directory does not exist: %s", dir)
			}
		}
	}

	return nil
}

func validateFileExists(filePath, description string) error {
	if filePath == "" {
		return fmt.Errorf("%s path cannot be empty", description)
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s does not exist: %s", description, filePath)
	}
	if err != nil {
		return fmt.Errorf("error accessing %s: %w", description, err)
	}

	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a file: %s", description, filePath)
	}

	// Check if file is readable
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("%s is not readable: %w", description, err)
	}
	file.Close()

	return nil
}

// buildEngineConfig assembles the matching configuration from the flags.
func buildEngineConfig() (*matcher.EngineConfig, error) {
	config := matcher.DefaultEngineConfig()
	if strictMatching {
		config = matcher.StrictEngineConfig()
	}

	config.MinReferenceDigits = minReferenceDigits
	if amountTolerance > 0.0 {
		config.Reference.AmountTolerancePercent = amountTolerance
		config.AmountDate.TolerancePercent = amountTolerance
	}

	if err := config.Validate(); err != nil {
		return nil, apperrors.ConfigurationError(apperrors.CodeInvalidConfig, "matching", config.String(), err)
	}
	return config, nil
}

// parseFile reads one CSV export and reports row-level failures on stderr.
func parseFile(parser *ingest.Parser, path string) ([]*models.Transaction, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, apperrors.FileError(apperrors.CodeFileNotFound, path, err)
	}
	defer file.Close()

	transactions, stats, err := parser.Parse(file, filepath.Base(path), scope)
	if err != nil {
		return nil, err
	}

	if stats.SkippedRows > 0 {
		fmt.Fprintf(os.Stderr, "Warning: skipped %d of %d rows in %s\n",
			stats.SkippedRows, stats.TotalRows, filepath.Base(path))
		if viper.GetBool("verbose") {
			for _, rowErr := range stats.Errors {
				fmt.Fprintf(os.Stderr, "  %s\n", rowErr.Message)
			}
		}
	}

	return transactions, nil
}

func runReconcile(cmd *cobra.Command, args []string) error {
	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Starting reconciliation...\n")
		fmt.Fprintf(os.Stderr, "Collection file: %s\n", collectionFile)
		fmt.Fprintf(os.Stderr, "Bank files: %s\n", strings.Join(bankFiles, ", "))
		fmt.Fprintf(os.Stderr, "Scope: %s\n", scope)
		fmt.Fprintf(os.Stderr, "Output format: %s\n", outputFormat)
		if outputFile != "" {
			fmt.Fprintf(os.Stderr, "Output file: %s\n", outputFile)
		}
	}

	engineConfig, err := buildEngineConfig()
	if err != nil {
		return err
	}

	// Parse input files
	collections, err := parseFile(ingest.NewCollectionParser(), collectionFile)
	if err != nil {
		return fmt.Errorf("failed to parse collection file: %w", err)
	}

	var banks []*models.Transaction
	for _, bankFile := range bankFiles {
		parsed, err := parseFile(ingest.NewBankParser(), bankFile)
		if err != nil {
			return fmt.Errorf("failed to parse bank file %s: %w", bankFile, err)
		}
		banks = append(banks, parsed...)
	}

	// Run the matching engine
	engine := matcher.NewMatchingEngine(engineConfig)
	matches, err := engine.RunReconciliation(scope, collections, banks)
	if err != nil {
		return fmt.Errorf("reconciliation failed: %w", err)
	}

	// Determine output destination
	var output *os.File
	if outputFile != "" {
		output, err = os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer output.Close()
	} else {
		output = os.Stdout
	}

	// Generate report
	result := report.Build(scope, len(collections), len(banks), matches)
	if err := result.Render(output, report.OutputFormat(outputFormat)); err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}

	// Show completion message
	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "\nReconciliation completed successfully.\n")
		fmt.Fprintf(os.Stderr, "Processed %d collection records and %d bank lines.\n",
			len(collections), len(banks))
		fmt.Fprintf(os.Stderr, "Found %d matches, %d unmatched collections, %d unmatched bank lines.\n",
			result.Matched, result.UnmatchedCollections, result.UnmatchedBanks)
	}

	return nil
}
