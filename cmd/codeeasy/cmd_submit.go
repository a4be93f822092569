package main

import (
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/felixgeelhaar/codeeasy/internal/api"
	"github.com/felixgeelhaar/codeeasy/internal/api/middleware"
	"github.com/felixgeelhaar/codeeasy/internal/domain"
)

// cmdSubmit grades a solution file against an exercise's tests
func cmdSubmit(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: codeeasy submit <track>/[category/]<slug> <file> [-lang ID] [-category C] [-user U] [-stdin S]")
	}
	ref, file := args[0], args[1]

	fs := flag.NewFlagSet("submit", flag.ContinueOnError)
	lang := fs.Int("lang", 0, "judge language ID (default inferred from the track)")
	category := fs.String("category", "", "exercise category (default practice)")
	user := fs.String("user", os.Getenv("CODEEASY_USER"), "user ID for history and progress")
	stdin := fs.String("stdin", "", "stdin passed to the program")
	if err := fs.Parse(args[2:]); err != nil {
		return err
	}

	track, cat, slug, err := parseExerciseRef(ref, true)
	if err != nil {
		return err
	}
	if *category != "" {
		cat = *category
	}

	source, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read solution: %w", err)
	}

	req := domain.SubmissionRequest{
		TrackSlug:    track,
		Category:     cat,
		ExerciseSlug: slug,
		SourceCode:   string(source),
		LanguageID:   *lang,
		Stdin:        *stdin,
	}

	var resp api.SubmitResponse
	headers := map[string]string{middleware.UserIDHeader: *user}
	if err := postJSON("/api/submissions", headers, req, &resp); err != nil {
		return err
	}

	printSubmission(os.Stdout, resp.Submission)
	if !resp.Submission.Passed {
		os.Exit(2)
	}
	return nil
}

// printSubmission renders a graded submission for the terminal.
func printSubmission(w io.Writer, s api.SubmissionView) {
	mark := "✗"
	if s.Passed {
		mark = "✓"
	}
	fmt.Fprintf(w, "%s %s", mark, s.Result.Status)
	if s.Language != "" {
		fmt.Fprintf(w, " (%s)", s.Language)
	}
	fmt.Fprintln(w)

	if s.Result.Time != "" {
		fmt.Fprintf(w, "Time: %ss | Memory: %d KB\n", s.Result.Time, s.Result.Memory)
	}

	if s.Result.CompileOutput != nil && *s.Result.CompileOutput != "" {
		fmt.Fprintf(w, "\nCompile output:\n%s\n", indent(*s.Result.CompileOutput))
	}

	passed := 0
	for _, tr := range s.TestResults {
		if tr.Passed {
			passed++
		}
	}
	if len(s.TestResults) > 0 {
		fmt.Fprintf(w, "\nTests: %d/%d passed\n", passed, len(s.TestResults))
		for _, tr := range s.TestResults {
			if tr.Passed {
				fmt.Fprintf(w, "  ✓ %s\n", tr.Input)
				continue
			}
			fmt.Fprintf(w, "  ✗ %s\n", tr.Input)
			if tr.ExpectedOutput != "" || tr.ActualOutput != "" {
				fmt.Fprintf(w, "      expected: %s\n", tr.ExpectedOutput)
				fmt.Fprintf(w, "      actual:   %s\n", tr.ActualOutput)
			}
		}
	}

	if !s.Passed && s.Result.Stderr != "" {
		fmt.Fprintf(w, "\nStderr:\n%s\n", indent(s.Result.Stderr))
	}
}

func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, line := range lines {
		lines[i] = "  " + line
	}
	return strings.Join(lines, "\n")
}

// cmdHistory lists stored submissions
func cmdHistory(args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	track := fs.String("track", "", "filter by track")
	exercise := fs.String("exercise", "", "filter by exercise slug")
	user := fs.String("user", os.Getenv("CODEEASY_USER"), "user ID")
	limit := fs.Int("limit", 20, "maximum number of submissions")
	if err := fs.Parse(args); err != nil {
		return err
	}

	q := url.Values{}
	if *track != "" {
		q.Set("track", *track)
	}
	if *exercise != "" {
		q.Set("exercise", *exercise)
	}
	q.Set("limit", strconv.Itoa(*limit))

	var resp api.SubmissionListResponse
	headers := map[string]string{middleware.UserIDHeader: *user}
	if err := getJSON("/api/submissions?"+q.Encode(), headers, &resp); err != nil {
		return err
	}

	if resp.Total == 0 {
		fmt.Println("No submissions yet.")
		return nil
	}

	for _, rec := range resp.Submissions {
		status := "pending"
		if !rec.Pending() {
			status = rec.Outcome.Status.String()
		}
		cat := rec.Category
		if cat == "" {
			cat = "practice"
		}
		fmt.Printf("%s  %-40s %-18s %s\n",
			rec.CreatedAt.Local().Format("2006-01-02 15:04"),
			rec.TrackSlug+"/"+cat+"/"+rec.ExerciseSlug,
			status,
			rec.ID,
		)
	}
	return nil
}
