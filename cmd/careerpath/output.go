package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kalambet/careerpath/internal/matching"
	"github.com/kalambet/careerpath/internal/profile"
	"github.com/kalambet/careerpath/internal/roadmap"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorGreen, "✓ "+msg))
}

func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorRed, "✗ "+msg))
}

func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorYellow, "⚠ "+msg))
}

func printStatus(label string, format string, args ...any) {
	val := fmt.Sprintf(format, args...)
	l := colorize(colorBold, label+":")
	fmt.Fprintf(os.Stderr, "  %s %s\n", l, val)
}

func printStep(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorCyan, "→ "+msg))
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printSummary(w io.Writer, s profile.Summary) {
	fmt.Fprintf(w, "%s %s\n", colorize(colorBold, "Background:"), s.Background)
	if len(s.TopInterests) > 0 {
		fmt.Fprintf(w, "%s %s\n", colorize(colorBold, "Interests:"), strings.Join(s.TopInterests, ", "))
	}
	if len(s.TopSkills) > 0 {
		fmt.Fprintf(w, "%s %s\n", colorize(colorBold, "Skills:"), strings.Join(s.TopSkills, ", "))
	}
}

func printRecommendations(w io.Writer, recs []matching.ScoredCareer) {
	for i, rec := range recs {
		fmt.Fprintf(w, "\n%s %s  %s\n",
			colorize(colorBold, fmt.Sprintf("%d.", i+1)),
			colorize(colorBold, rec.Title),
			colorize(colorGreen, fmt.Sprintf("%d%% match", rec.MatchPercentage)),
		)
		fmt.Fprintf(w, "   %s\n", rec.Description)
		fmt.Fprintf(w, "   Salary: %s  Growth: %s\n", rec.AverageSalary, rec.GrowthProspects)
		if len(rec.MatchedSkills) > 0 {
			fmt.Fprintf(w, "   Your matching skills: %s\n", strings.Join(rec.MatchedSkills, ", "))
		}
		fmt.Fprintf(w, "   id: %s\n", colorize(colorCyan, rec.ID))
	}
}

// printRoadmap renders r. progress maps stage ids to completion percentages
// and may be nil.
func printRoadmap(w io.Writer, r roadmap.Roadmap, progress map[string]int) {
	fmt.Fprintf(w, "\n%s (%s)\n", colorize(colorBold, r.Title), r.TotalDuration)
	fmt.Fprintf(w, "%s\n", r.Overview)
	if r.PersonalizedNote != "" {
		fmt.Fprintf(w, "\n%s\n", r.PersonalizedNote)
	}

	for i, s := range r.Stages {
		header := fmt.Sprintf("Stage %d: %s", i+1, s.Title)
		if pct, ok := progress[s.ID]; ok {
			header += fmt.Sprintf(" [%d%%]", pct)
		}
		fmt.Fprintf(w, "\n%s  %s  %s\n", colorize(colorBold, header), s.Duration, colorize(colorGreen, s.SalaryRange))
		fmt.Fprintf(w, "  %s\n", s.Description)
		printList(w, "Skills", s.Skills)
		printList(w, "Courses", s.Courses)
		printList(w, "Certifications", s.Certifications)
		printList(w, "Projects", s.Projects)
		printList(w, "Milestones", s.Milestones)
		printList(w, "Networking", s.Networking)
	}

	fmt.Fprintln(w)
	printList(w, "Industry insights", r.IndustryInsights)
	printList(w, "Long-term options", r.LongTermOptions)
	printList(w, "Key companies", r.KeyCompanies)
}

func printList(w io.Writer, label string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "  %s: %s\n", colorize(colorCyan, label), strings.Join(items, "; "))
}
