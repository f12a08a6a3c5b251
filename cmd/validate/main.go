package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/jwebster45206/druid-of-peace/data"
	"github.com/jwebster45206/druid-of-peace/pkg/content"
	"github.com/jwebster45206/druid-of-peace/pkg/skills"
)

func main() {
	var fsys fs.FS = data.FS
	source := "embedded content"
	if len(os.Args) > 1 {
		fsys = os.DirFS(os.Args[1])
		source = os.Args[1]
	}

	validator := &ContentValidator{}
	if err := validator.validate(fsys, source); err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Content is valid!")
}

// sectionTypes maps each content file to the type it must decode into.
var sectionTypes = map[string]func() any{
	"zones":      func() any { return &[]content.Zone{} },
	"npcs":       func() any { return &[]content.NPCTemplate{} },
	"abilities":  func() any { return &[]content.Ability{} },
	"items":      func() any { return &[]content.Item{} },
	"skills":     func() any { return &[]content.Skill{} },
	"weather":    func() any { return &[]content.Weather{} },
	"druid":      func() any { return &content.DruidSpec{} },
	"narratives": func() any { return &[]content.Narrative{} },
}

type ContentValidator struct {
	errors []string
}

func (v *ContentValidator) fail(format string, args ...any) {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
}

func (v *ContentValidator) validate(fsys fs.FS, source string) error {
	fmt.Printf("Validating %s...\n", source)
	v.errors = nil

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", source, err)
	}
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".json" {
			continue
		}
		v.validateJSONFile(fsys, e.Name())
	}

	lib, loadErrs := content.Load(fsys)
	for _, err := range loadErrs {
		v.fail("%v", err)
	}
	for _, problem := range lib.Validate() {
		v.fail("%s", problem)
	}
	for _, id := range lib.SkillIDs() {
		s := lib.Skills[id]
		if s.Unlock == nil || s.Unlock.Script == "" {
			continue
		}
		if err := skills.CheckScript(s.Unlock.Script); err != nil {
			v.fail("skill %q has an invalid unlock script: %v", id, err)
		}
	}

	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors in %s:\n%s", source, strings.Join(v.errors, "\n"))
	}
	return nil
}

// validateJSONFile decodes a section strictly so misspelled fields are
// reported instead of silently ignored.
func (v *ContentValidator) validateJSONFile(fsys fs.FS, name string) {
	section := strings.TrimSuffix(name, ".json")
	if !content.IsValidID(section) {
		v.fail("file name %q must be lowercase snake_case", name)
		return
	}
	newTarget, ok := sectionTypes[section]
	if !ok {
		v.fail("file %q is not a known content section", name)
		return
	}

	raw, err := fs.ReadFile(fsys, name)
	if err != nil {
		v.fail("failed to read %s: %v", name, err)
		return
	}
	if !json.Valid(raw) {
		v.fail("file %s contains invalid JSON", name)
		return
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(newTarget()); err != nil {
		v.fail("file %s failed strict JSON unmarshaling: %v", name, err)
	}
}
