package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/felixgeelhaar/codeeasy/internal/exercise"
	"github.com/felixgeelhaar/codeeasy/internal/runner"
)

// cmdTracks lists the tracks served by the daemon
func cmdTracks() error {
	var result struct {
		Tracks []exercise.TrackSummary `json:"tracks"`
	}
	if err := getJSON("/api/tracks", nil, &result); err != nil {
		return err
	}

	if len(result.Tracks) == 0 {
		fmt.Println("No tracks found. Check content.root in codeeasy.yaml.")
		return nil
	}

	fmt.Println("Tracks:")
	for _, t := range result.Tracks {
		state := ""
		if !t.Active {
			state = " (inactive)"
		}
		fmt.Printf("  %s%s\n", t.Slug, state)
		if t.Blurb != "" {
			fmt.Printf("    %s\n", t.Blurb)
		}
		fmt.Printf("    Concepts: %d | Exercises: %d\n\n", t.ConceptCount, t.ExerciseCount)
	}
	return nil
}

// cmdExercise lists or describes exercises
func cmdExercise(args []string) error {
	if len(args) < 1 {
		fmt.Println(`Exercise commands:

  codeeasy exercise list <track> [category]        List exercises
  codeeasy exercise info <track>/<category>/<slug> Show exercise details`)
		return nil
	}

	switch args[0] {
	case "list":
		if len(args) < 2 {
			return fmt.Errorf("track required (e.g., codeeasy exercise list javascript)")
		}
		category := "practice"
		if len(args) > 2 {
			category = args[2]
		}
		return cmdExerciseList(args[1], category)
	case "info":
		if len(args) < 2 {
			return fmt.Errorf("exercise required (e.g., javascript/practice/two-fer)")
		}
		return cmdExerciseInfo(args[1])
	default:
		return fmt.Errorf("unknown exercise command: %s", args[0])
	}
}

func cmdExerciseList(track, category string) error {
	var result struct {
		Exercises []exercise.ExerciseSummary `json:"exercises"`
		Total     int                        `json:"total"`
	}
	if err := getJSON(fmt.Sprintf("/api/tracks/%s/exercises/%s", track, category), nil, &result); err != nil {
		return err
	}

	fmt.Printf("%s/%s (%d exercises):\n", track, category, result.Total)
	for _, ex := range result.Exercises {
		fmt.Printf("  %-28s %s\n", ex.Slug, ex.Title)
	}

	fmt.Println("\nUse 'codeeasy exercise info <track>/<category>/<slug>' for details")
	return nil
}

func cmdExerciseInfo(id string) error {
	track, category, slug, err := parseExerciseRef(id, true)
	if err != nil {
		return err
	}

	var result struct {
		Exercise exercise.ExerciseDetail `json:"exercise"`
	}
	if err := getJSON(fmt.Sprintf("/api/tracks/%s/exercises/%s/%s", track, category, slug), nil, &result); err != nil {
		return err
	}
	ex := result.Exercise

	fmt.Printf("Exercise: %s\n\n", ex.Title)
	fmt.Printf("ID:       %s/%s/%s\n", ex.Track, ex.Category, ex.Slug)
	if ex.Blurb != "" {
		fmt.Printf("Blurb:    %s\n", ex.Blurb)
	}
	if ex.Source != "" {
		fmt.Printf("Source:   %s\n", ex.Source)
	}

	files := make([]string, 0, len(ex.StarterCode))
	for name := range ex.StarterCode {
		files = append(files, name)
	}
	sort.Strings(files)
	if len(files) > 0 {
		fmt.Printf("Starter:  %s\n", strings.Join(files, ", "))
	}

	if text := ex.Docs["instructions"]; text != "" {
		fmt.Printf("\nInstructions:\n%s\n", text)
	}
	return nil
}

// parseExerciseRef splits track/[category/]slug. The category defaults to
// practice when allowShort is set and only two parts are given.
func parseExerciseRef(ref string, allowShort bool) (track, category, slug string, err error) {
	parts := strings.Split(strings.Trim(ref, "/"), "/")
	switch {
	case len(parts) == 3:
		track, category, slug = parts[0], parts[1], parts[2]
	case len(parts) == 2 && allowShort:
		track, category, slug = parts[0], "practice", parts[1]
	default:
		return "", "", "", fmt.Errorf("exercise must be in format track/category/slug (e.g., javascript/practice/two-fer)")
	}
	if track == "" || category == "" || slug == "" {
		return "", "", "", fmt.Errorf("invalid exercise reference %q", ref)
	}
	return track, category, slug, nil
}

// cmdLanguages lists the judge languages
func cmdLanguages() error {
	var result struct {
		Languages []runner.LanguageInfo `json:"languages"`
	}
	if err := getJSON("/api/languages", nil, &result); err != nil {
		return err
	}

	fmt.Printf("%-5s %-14s %-10s %s\n", "ID", "NAME", "VERSION", "GRADED")
	for _, lang := range result.Languages {
		graded := "no"
		if lang.Gradable {
			graded = "yes"
		}
		fmt.Printf("%-5d %-14s %-10s %s\n", lang.ID, lang.Name, lang.Version, graded)
	}
	return nil
}
