package histfigrag

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/mcjkurz/histfigrag/figurestore"
)

const maxFieldChars = 400

// figureNameDisallowed matches any character forbidden in a display
// name: digits and ASCII punctuation. Unicode letters (including CJK)
// and spaces are permitted.
var figureNameDisallowed = regexp.MustCompile(`[0-9!@#$%^&*()_+=\[\]{};:'",.<>?/\\|` + "`" + `~]`)

// FigureInput is the caller-supplied payload for creating or updating
// a figure, validated before it ever reaches the store.
type FigureInput struct {
	ID                 string `json:"figure_id"`
	Name               string `json:"name"`
	Description        string `json:"description"`
	PersonaInstruction string `json:"persona_instruction"`
	BirthYear          string `json:"birth_year"`
	DeathYear          string `json:"death_year"`
}

// ValidateCreate validates a figure creation payload, returning a
// field-name -> message map. An empty map means the input is valid.
func (in FigureInput) ValidateCreate() map[string]string {
	errs := map[string]string{}

	id := strings.TrimSpace(in.ID)
	if id == "" {
		errs["figure_id"] = "Figure ID is required"
	} else if len(id) > 50 {
		errs["figure_id"] = "Figure ID must be 50 characters or less"
	} else if !figurestore.ValidFigureID(id) {
		errs["figure_id"] = "Figure ID must contain only alphabetic characters (no numbers, spaces, or special characters)"
	}

	in.validateShared(errs, true)
	return errs
}

// ValidateUpdate validates a figure update payload. The id is not
// re-validated (it is immutable); name is optional but must be valid
// when provided.
func (in FigureInput) ValidateUpdate() map[string]string {
	errs := map[string]string{}
	in.validateShared(errs, false)
	return errs
}

func (in FigureInput) validateShared(errs map[string]string, nameRequired bool) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		if nameRequired {
			errs["name"] = "Figure name is required"
		}
	} else if utf8.RuneCountInString(name) > 100 {
		errs["name"] = "Figure name must be 100 characters or less"
	} else if figureNameDisallowed.MatchString(name) {
		errs["name"] = "Figure name must contain only alphabetic characters and spaces"
	}

	if utf8.RuneCountInString(in.Description) > maxFieldChars {
		errs["description"] = "Description must be 400 characters or less"
	}
	if utf8.RuneCountInString(in.PersonaInstruction) > maxFieldChars {
		errs["persona_instruction"] = "Persona instruction must be 400 characters or less"
	}

	birth, birthOK := validateYear(in.BirthYear, "Birth year", errs, "birth_year")
	death, deathOK := validateYear(in.DeathYear, "Death year", errs, "death_year")
	if birthOK && deathOK && in.BirthYear != "" && in.DeathYear != "" && death < birth {
		errs["death_year"] = "Death year cannot be before birth year"
	}
}

// validateYear validates a single year field, recording an error
// into errs under key if invalid, and returns the parsed value along
// with whether it parsed cleanly.
func validateYear(yearStr, fieldName string, errs map[string]string, key string) (int, bool) {
	yearStr = strings.TrimSpace(yearStr)
	if yearStr == "" {
		return 0, true // optional
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		errs[key] = fieldName + " must be a number"
		return 0, false
	}
	if year < -3000 || year > 2100 {
		errs[key] = fieldName + " must be between 3000 BC and 2100 AD"
		return 0, false
	}
	return year, true
}

// Years renders the optional birth/death pair into the single free-form
// string stored on figurestore.Figure.
func (in FigureInput) Years() string {
	birth := strings.TrimSpace(in.BirthYear)
	death := strings.TrimSpace(in.DeathYear)
	switch {
	case birth != "" && death != "":
		return birth + "–" + death
	case birth != "":
		return birth + "–present"
	case death != "":
		return death
	default:
		return ""
	}
}
