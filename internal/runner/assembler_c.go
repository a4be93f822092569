package runner

import (
	"embed"
	"fmt"
	"path"
	"regexp"
	"time"

	"github.com/felixgeelhaar/codeeasy/internal/domain"
	"github.com/felixgeelhaar/codeeasy/internal/exercise"
)

//go:embed unity/unity.h unity/unity.c
var builtinUnity embed.FS

const (
	unityHeader = "unity.h"
	unitySource = "unity.c"
)

var cLocalInclude = regexp.MustCompile(`(?m)^(\s*#\s*include\s*)"([^"]+)"`)

const cNoTestsMain = `#include <stdio.h>

int main(void)
{
    printf("No tests available\n");
    return 0;
}
`

// CAssembler builds a multi-file payload for Unity-based C exercises:
// framework files, the exercise header, the solution and the test runner.
type CAssembler struct {
	compileTimeout time.Duration
	runTimeout     time.Duration
}

// NewCAssembler creates a C assembler
func NewCAssembler(opts AssemblerOptions) *CAssembler {
	return &CAssembler{compileTimeout: opts.CompileTimeout, runTimeout: opts.RunTimeout}
}

// LanguageID returns the C judge ID
func (a *CAssembler) LanguageID() int { return LanguageIDC }

// NeedsHeader returns true
func (a *CAssembler) NeedsHeader() bool { return true }

// Format returns FormatUnity
func (a *CAssembler) Format() OutputFormat { return FormatUnity }

// Assemble builds the file list in compile order.
func (a *CAssembler) Assemble(in AssembleInput) (*domain.Payload, error) {
	fx := in.Fixture
	if fx == nil {
		fx = &exercise.Fixture{}
	}
	snake := exercise.SnakeSlug(in.Slug)

	files, err := unityFiles(fx)
	if err != nil {
		return nil, err
	}

	headerName := snake + ".h"
	if fx.HeaderFile != "" {
		headerName = path.Base(fx.HeaderFile)
	}
	solutionName := fx.SolutionFile(in.Slug, ".c")
	if solutionName == "" {
		solutionName = snake + ".c"
	}
	testName := "test_" + snake + ".c"
	testContent := cNoTestsMain
	if fx.HasTests() {
		testName = path.Base(fx.TestFile)
		testContent = fx.TestContent
	}

	files = append(files,
		domain.SourceFile{Name: headerName, Content: fx.HeaderContent},
		domain.SourceFile{Name: solutionName, Content: in.UserCode},
		domain.SourceFile{Name: testName, Content: testContent},
	)

	return &domain.Payload{
		Files:          flattenIncludePaths(files),
		Stdin:          in.Stdin,
		CompileTimeout: a.compileTimeout,
		RunTimeout:     a.runTimeout,
	}, nil
}

// unityFiles returns the bundled framework when the fixture ships both
// unity.h and unity.c, otherwise the built-in fallback.
func unityFiles(fx *exercise.Fixture) ([]domain.SourceFile, error) {
	header, okH := fx.FrameworkFile(unityHeader)
	source, okC := fx.FrameworkFile(unitySource)
	if okH && okC {
		files := []domain.SourceFile{header, source}
		for _, f := range fx.Framework {
			if f.Name != unityHeader && f.Name != unitySource {
				files = append(files, f)
			}
		}
		return files, nil
	}

	files := make([]domain.SourceFile, 0, 2)
	for _, name := range []string{unityHeader, unitySource} {
		data, err := builtinUnity.ReadFile("unity/" + name)
		if err != nil {
			return nil, fmt.Errorf("read built-in %s: %w", name, err)
		}
		files = append(files, domain.SourceFile{Name: name, Content: string(data)})
	}
	return files, nil
}

// flattenIncludePaths rewrites #include "dir/x.h" to #include "x.h" when
// x.h is part of the payload, since judges write all files side by side.
func flattenIncludePaths(files []domain.SourceFile) []domain.SourceFile {
	names := make(map[string]bool, len(files))
	for _, f := range files {
		names[f.Name] = true
	}

	for i, f := range files {
		files[i].Content = cLocalInclude.ReplaceAllStringFunc(f.Content, func(m string) string {
			sub := cLocalInclude.FindStringSubmatch(m)
			base := path.Base(sub[2])
			if base == sub[2] || !names[base] {
				return m
			}
			return sub[1] + `"` + base + `"`
		})
	}
	return files
}
