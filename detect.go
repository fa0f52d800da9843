// Copyright (c) 2024 The sdg developers. All rights reserved.
// Project site: https://github.com/gotmc/sdg
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package sdg

import (
	"fmt"
	"regexp"
)

// Family is a Siglent SDG model family.
type Family string

// Known model families. SDG6000X is recognized but has no driver yet.
const (
	FamilySDG1000  Family = "SDG1000"
	FamilySDG2000X Family = "SDG2000X"
	FamilySDG6000X Family = "SDG6000X"
)

var familyPatterns = []struct {
	family Family
	re     *regexp.Regexp
}{
	{FamilySDG1000, regexp.MustCompile(`(?i)SDG1\d{3}[A-Z]*`)},
	{FamilySDG2000X, regexp.MustCompile(`(?i)SDG2\d{3}X[A-Z]*`)},
	{FamilySDG6000X, regexp.MustCompile(`(?i)SDG6\d{3}X[A-Z]*`)},
}

// FamilyOf classifies a model name such as "SDG2042X".
func FamilyOf(model string) (Family, error) {
	for _, p := range familyPatterns {
		if p.re.MatchString(model) {
			return p.family, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedModel, model)
}

// DetectFamily classifies the model field of an *IDN? response.
func DetectFamily(idn string) (Family, error) {
	id, err := ParseIdentity(idn)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedModel, err)
	}
	return FamilyOf(id.Model)
}

// New returns the driver for the given family.
func New(f Family, t Transport, opts ...InstrumentOption) (Generator, error) {
	switch f {
	case FamilySDG1000:
		return NewSDG1000(t, opts...), nil
	case FamilySDG2000X:
		return NewSDG2000X(t, opts...), nil
	}
	return nil, fmt.Errorf("%w: no driver for %s", ErrUnsupportedModel, f)
}

// Open identifies the instrument on the transport and returns the matching
// driver.
func Open(t Transport, opts ...InstrumentOption) (Generator, error) {
	idn, err := NewInstrument(t, opts...).Info()
	if err != nil {
		return nil, err
	}
	f, err := DetectFamily(idn)
	if err != nil {
		return nil, err
	}
	return New(f, t, opts...)
}
