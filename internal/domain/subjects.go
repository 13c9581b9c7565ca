package domain

import "strings"

// Subject is a practice catalogue entry.
type Subject struct {
	Code string
	Name string
}

// Subjects lists the practice subjects in display order.
var Subjects = []Subject{
	{Code: "MATH", Name: "Engineering Mathematics"},
	{Code: "DL", Name: "Digital Logic"},
	{Code: "COA", Name: "Computer Organization"},
	{Code: "PROG", Name: "Programming & Data Structures"},
	{Code: "ALGO", Name: "Algorithms"},
	{Code: "TOC", Name: "Theory of Computation"},
	{Code: "CD", Name: "Compiler Design"},
	{Code: "OS", Name: "Operating Systems"},
	{Code: "DB", Name: "Database Management"},
	{Code: "CN", Name: "Computer Networks"},
	{Code: "GA", Name: "General Aptitude"},
}

// AllSubjects is the material filter value meaning "no filter".
const AllSubjects = "ALL"

// LookupSubject resolves a subject code case-insensitively.
func LookupSubject(code string) (Subject, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, s := range Subjects {
		if s.Code == code {
			return s, nil
		}
	}
	return Subject{}, ErrUnknownSubject
}
