package coverpage

import "strings"

// Variables is the closed set of template placeholders. It is built fresh
// per rendering call from the submission, subject and settings records and
// never mutated afterwards.
type Variables struct {
	Name           string
	RollNo         string
	Department     string
	SessionYear    string
	SubjectName    string
	SubjectCode    string
	ProfessorName  string
	Topic          string
	SubmissionType string
	InstituteName  string
	Tagline1       string
	Tagline2       string
	Tagline3       string
	LogoURL        string
	CurrentDate    string
	Marks          string
}

// Map returns the placeholder-name to value snapshot used for one render
func (v Variables) Map() map[string]string {
	return map[string]string{
		"name":           v.Name,
		"rollNo":         v.RollNo,
		"department":     v.Department,
		"sessionYear":    v.SessionYear,
		"subjectName":    v.SubjectName,
		"subjectCode":    v.SubjectCode,
		"professorName":  v.ProfessorName,
		"topic":          v.Topic,
		"submissionType": v.SubmissionType,
		"instituteName":  v.InstituteName,
		"tagline1":       v.Tagline1,
		"tagline2":       v.Tagline2,
		"tagline3":       v.Tagline3,
		"logoUrl":        v.LogoURL,
		"currentDate":    v.CurrentDate,
		"marks":          v.Marks,
	}
}

// Substitute replaces every {{name}} occurrence for names present in the
// mapping. Placeholders that resolve to no known name are left as literal
// text so template-authoring mistakes stay visible instead of crashing
// the pipeline.
func Substitute(html string, vars map[string]string) string {
	for name, val := range vars {
		html = strings.ReplaceAll(html, "{{"+name+"}}", val)
	}
	return html
}
