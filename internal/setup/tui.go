package setup

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/finwald/ledgerd/config"
	"gopkg.in/yaml.v3"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

// RunTUI launches the terminal configuration wizard and writes config.gen.yaml.
func RunTUI() error {
	var (
		httpAddr            string
		dataDir             string
		segmentThresholdStr string
		syncWrites          bool
		confirm             bool
	)

	// defaults
	httpAddr = ":8080"
	dataDir = "./wal/accounts"
	segmentThresholdStr = "1000"
	syncWrites = true

	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("LEDGERD CONFIG WIZARD"))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Account ledger setup.\n"))

	fmt.Println(stepStyle.Render("STEP 1: HTTP"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Listen Address").
				Description("host:port the API binds to (e.g. :8080)").
				Value(&httpAddr).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("address cannot be empty")
					}
					return nil
				}),
		),
	).Run()
	if err != nil {
		return err
	}

	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("LEDGERD CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 2: STORAGE"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Data Directory").
				Description("Root directory for per-account event logs").
				Value(&dataDir).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("data directory cannot be empty")
					}
					return nil
				}),
			huh.NewInput().
				Title("Segment Threshold").
				Description("Events per log segment (e.g. 1000)").
				Value(&segmentThresholdStr).
				Validate(func(s string) error {
					n, err := strconv.Atoi(s)
					if err != nil || n <= 0 {
						return fmt.Errorf("must be a positive integer")
					}
					return nil
				}),
			huh.NewConfirm().
				Title("Sync writes to disk?").
				Description("Disable only for testing; a confirmed deposit must be durable").
				Affirmative("Yes, fsync").
				Negative("No").
				Value(&syncWrites),
		),
	).Run()
	if err != nil {
		return err
	}

	// confirmation
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("LEDGERD CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("FINAL CONFIRMATION"))

	summary := fmt.Sprintf(
		"HTTP: %s\nData dir: %s\nSegment threshold: %s\nSync writes: %t\n",
		httpAddr, dataDir, segmentThresholdStr, syncWrites,
	)
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save and start").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}

	if !confirm {
		return fmt.Errorf("setup cancelled by user")
	}

	segmentThreshold, _ := strconv.Atoi(segmentThresholdStr)

	cfg := config.Config{
		HTTPAddr:         httpAddr,
		DataDir:          dataDir,
		SegmentThreshold: segmentThreshold,
		NoSync:           !syncWrites,
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to generate yaml: %w", err)
	}

	filename := "config.gen.yaml"
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\n✓ Configuration saved to %s\nStarting ledgerd...", filename)))
	time.Sleep(1500 * time.Millisecond) // small pause to read success message
	return nil
}
