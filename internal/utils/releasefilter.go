package utils

import (
	"bufio"
	"os"
	"strings"
)

// ReleaseFilter holds terms for rejecting candidate release titles
// (cam rips, known bad groups, unwanted languages)
type ReleaseFilter struct {
	terms []string
}

// LoadReleaseFilter loads filter terms from a file, one per line.
// A missing file yields an empty filter.
func LoadReleaseFilter(path string) (*ReleaseFilter, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &ReleaseFilter{}, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var terms []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		term := strings.TrimSpace(scanner.Text())
		if term != "" && !strings.HasPrefix(term, "#") {
			terms = append(terms, term)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return &ReleaseFilter{terms: terms}, nil
}

// Match returns the first term contained in the title, if any
func (f *ReleaseFilter) Match(title string) (string, bool) {
	titleLower := strings.ToLower(title)

	for _, term := range f.terms {
		if strings.Contains(titleLower, strings.ToLower(term)) {
			return term, true
		}
	}

	return "", false
}
