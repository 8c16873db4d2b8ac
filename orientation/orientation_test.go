package orientation

import (
	"testing"
)

func TestResolve(t *testing.T) {

	tests := []struct {
		heading  float64
		present  bool
		expected float64
	}{
		{0.0, true, 0.0},
		{90.0, true, 90.0},
		{180.0, true, 180.0},
		{270.0, true, 270.0},
		{360.0, true, 0.0},
		{450.0, true, 90.0},
		{-90.0, true, 270.0},
		{123.4, false, 0.0},
	}

	for _, tc := range tests {

		r := Resolve(tc.heading, tc.present)

		if r != tc.expected {
			t.Errorf("Resolve(%f, %t) is %f, expected %f", tc.heading, tc.present, r, tc.expected)
		}
	}
}

func TestNormalize(t *testing.T) {

	tests := []struct {
		heading  float64
		expected float64
	}{
		{0.0, 0.0},
		{359.9, 359.9},
		{720.0, 0.0},
		{-45.0, 315.0},
		{-720.0, 0.0},
	}

	for _, tc := range tests {

		n := Normalize(tc.heading)

		if n != tc.expected {
			t.Errorf("Normalize(%f) is %f, expected %f", tc.heading, n, tc.expected)
		}
	}
}
