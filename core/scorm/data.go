// Package scorm implements the SCORM 1.2 and 2004 runtime API backed by a flat `cmi.*` map.
package scorm

import (
	"math"
	"strconv"
	"strings"
)

type Version string

const (
	Version12   Version = "1.2"
	Version2004 Version = "2004"
)

func (v Version) Valid() bool { return v == Version12 || v == Version2004 }

// Data is the persisted cmi data model: element name -> value.
type Data map[string]string

func (d Data) Clone() Data {
	c := make(Data, len(d))
	for k, v := range d {
		c[k] = v
	}
	return c
}

// Defaults returns the initial data of a first attempt.
func Defaults(version Version, learnerID, learnerName string) Data {
	if version == Version12 {
		return Data{
			"cmi.core.student_id":    learnerID,
			"cmi.core.student_name":  learnerName,
			"cmi.core.lesson_status": "not attempted",
			"cmi.core.entry":         "ab-initio",
			"cmi.core.credit":        "credit",
			"cmi.core.lesson_mode":   "normal",
			"cmi.core.total_time":    "0000:00:00",
		}
	}
	return Data{
		"cmi._version":          "1.0",
		"cmi.learner_id":        learnerID,
		"cmi.learner_name":      learnerName,
		"cmi.completion_status": "unknown",
		"cmi.success_status":    "unknown",
		"cmi.entry":             "ab-initio",
		"cmi.credit":            "credit",
		"cmi.mode":              "normal",
		"cmi.total_time":        "PT0S",
	}
}

// Resume prepares data saved by a previous session for a new one.
func Resume(version Version, data Data) Data {
	d := data.Clone()
	if version == Version12 {
		d["cmi.core.entry"] = "resume"
		delete(d, "cmi.core.session_time")
		delete(d, "cmi.core.exit")
		return d
	}
	d["cmi.entry"] = "resume"
	delete(d, "cmi.session_time")
	delete(d, "cmi.exit")
	return d
}

// Completed reports whether the SCO reported completion.
func Completed(version Version, data Data) bool {
	if version == Version12 {
		switch data["cmi.core.lesson_status"] {
		case "completed", "passed":
			return true
		}
		return false
	}
	return data["cmi.completion_status"] == "completed" || data["cmi.success_status"] == "passed"
}

// ProgressMeasure returns the completion percentage (0-100) reported by the SCO.
func ProgressMeasure(version Version, data Data) int {
	if Completed(version, data) {
		return 100
	}
	if version == Version2004 {
		if pm, err := strconv.ParseFloat(data["cmi.progress_measure"], 64); err == nil && pm >= 0 && pm <= 1 {
			return int(math.Round(pm * 100))
		}
	}
	return 0
}

// count returns the number of entries of a collection such as cmi.interactions.
func (d Data) count(collection string) int {
	prefix := collection + "."
	seen := make(map[int]struct{})
	for k := range d {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		idx := strings.SplitN(k[len(prefix):], ".", 2)[0]
		if n, err := strconv.Atoi(idx); err == nil {
			seen[n] = struct{}{}
		}
	}
	return len(seen)
}
