package scorm

import (
	"regexp"
	"strconv"
	"strings"
)

type access int

const (
	readWrite access = iota
	readOnly
	writeOnly
)

type element struct {
	access access
	valid  func(string) bool
}

var (
	indexRe = regexp.MustCompile(`\.\d+\.`)

	anyValue = func(string) bool { return true }

	elements12 = map[string]element{
		"cmi.core.student_id":                 {access: readOnly},
		"cmi.core.student_name":               {access: readOnly},
		"cmi.core.lesson_location":            {valid: maxLen(255)},
		"cmi.core.credit":                     {access: readOnly},
		"cmi.core.lesson_status":              {valid: oneOf("passed", "completed", "failed", "incomplete", "browsed", "not attempted")},
		"cmi.core.entry":                      {access: readOnly},
		"cmi.core.score.raw":                  {valid: decimalIn(0, 100, true)},
		"cmi.core.score.min":                  {valid: decimalIn(0, 100, true)},
		"cmi.core.score.max":                  {valid: decimalIn(0, 100, true)},
		"cmi.core.total_time":                 {access: readOnly},
		"cmi.core.lesson_mode":                {access: readOnly},
		"cmi.core.exit":                       {access: writeOnly, valid: oneOf("time-out", "suspend", "logout", "")},
		"cmi.core.session_time":               {access: writeOnly, valid: anyValue},
		"cmi.suspend_data":                    {valid: maxLen(4096)},
		"cmi.launch_data":                     {access: readOnly},
		"cmi.comments":                        {valid: maxLen(4096)},
		"cmi.comments_from_lms":               {access: readOnly},
		"cmi.objectives.n.id":                 {valid: maxLen(255)},
		"cmi.objectives.n.status":             {valid: oneOf("passed", "completed", "failed", "incomplete", "browsed", "not attempted")},
		"cmi.objectives.n.score.raw":          {valid: decimalIn(0, 100, true)},
		"cmi.interactions.n.id":               {access: writeOnly, valid: maxLen(255)},
		"cmi.interactions.n.type":             {access: writeOnly, valid: anyValue},
		"cmi.interactions.n.result":           {access: writeOnly, valid: anyValue},
		"cmi.interactions.n.time":             {access: writeOnly, valid: anyValue},
		"cmi.interactions.n.latency":          {access: writeOnly, valid: anyValue},
		"cmi.interactions.n.weighting":        {access: writeOnly, valid: decimalIn(-1e9, 1e9, false)},
		"cmi.interactions.n.student_response": {access: writeOnly, valid: anyValue},
	}

	elements2004 = map[string]element{
		"cmi._version":                        {access: readOnly},
		"cmi.learner_id":                      {access: readOnly},
		"cmi.learner_name":                    {access: readOnly},
		"cmi.location":                        {valid: maxLen(1000)},
		"cmi.credit":                          {access: readOnly},
		"cmi.mode":                            {access: readOnly},
		"cmi.entry":                           {access: readOnly},
		"cmi.launch_data":                     {access: readOnly},
		"cmi.total_time":                      {access: readOnly},
		"cmi.completion_threshold":            {access: readOnly},
		"cmi.scaled_passing_score":            {access: readOnly},
		"cmi.max_time_allowed":                {access: readOnly},
		"cmi.time_limit_action":               {access: readOnly},
		"cmi.completion_status":               {valid: oneOf("completed", "incomplete", "not attempted", "unknown")},
		"cmi.success_status":                  {valid: oneOf("passed", "failed", "unknown")},
		"cmi.progress_measure":                {valid: decimalIn(0, 1, false)},
		"cmi.score.scaled":                    {valid: decimalIn(-1, 1, false)},
		"cmi.score.raw":                       {valid: decimalIn(-1e9, 1e9, false)},
		"cmi.score.min":                       {valid: decimalIn(-1e9, 1e9, false)},
		"cmi.score.max":                       {valid: decimalIn(-1e9, 1e9, false)},
		"cmi.suspend_data":                    {valid: maxLen(64000)},
		"cmi.exit":                            {access: writeOnly, valid: oneOf("time-out", "suspend", "logout", "normal", "")},
		"cmi.session_time":                    {access: writeOnly, valid: anyValue},
		"cmi.objectives.n.id":                 {valid: maxLen(4000)},
		"cmi.objectives.n.success_status":     {valid: oneOf("passed", "failed", "unknown")},
		"cmi.objectives.n.completion_status":  {valid: oneOf("completed", "incomplete", "not attempted", "unknown")},
		"cmi.objectives.n.progress_measure":   {valid: decimalIn(0, 1, false)},
		"cmi.objectives.n.score.scaled":       {valid: decimalIn(-1, 1, false)},
		"cmi.interactions.n.id":               {valid: maxLen(4000)},
		"cmi.interactions.n.type":             {valid: oneOf("true-false", "choice", "fill-in", "long-fill-in", "matching", "performance", "sequencing", "likert", "numeric", "other")},
		"cmi.interactions.n.timestamp":        {valid: anyValue},
		"cmi.interactions.n.weighting":        {valid: decimalIn(-1e9, 1e9, false)},
		"cmi.interactions.n.learner_response": {valid: anyValue},
		"cmi.interactions.n.result":           {valid: anyValue},
		"cmi.interactions.n.latency":          {valid: anyValue},
		"cmi.interactions.n.description":      {valid: maxLen(250)},
	}

	children12 = map[string]string{
		"cmi.core._children":         "student_id,student_name,lesson_location,credit,lesson_status,entry,score,total_time,lesson_mode,exit,session_time",
		"cmi.core.score._children":   "raw,min,max",
		"cmi.objectives._children":   "id,score,status",
		"cmi.interactions._children": "id,objectives,time,type,correct_responses,weighting,student_response,result,latency",
	}

	children2004 = map[string]string{
		"cmi.score._children":        "scaled,raw,min,max",
		"cmi.objectives._children":   "id,score,success_status,completion_status,progress_measure,description",
		"cmi.interactions._children": "id,type,objectives,timestamp,correct_responses,weighting,learner_response,result,latency,description",
	}
)

func oneOf(vals ...string) func(string) bool {
	return func(s string) bool {
		for _, v := range vals {
			if s == v {
				return true
			}
		}
		return false
	}
}

func maxLen(n int) func(string) bool {
	return func(s string) bool { return len(s) <= n }
}

func decimalIn(min, max float64, allowEmpty bool) func(string) bool {
	return func(s string) bool {
		if s == "" {
			return allowEmpty
		}
		f, err := strconv.ParseFloat(s, 64)
		return err == nil && f >= min && f <= max
	}
}

// lookup resolves an element name, collapsing collection indexes (cmi.interactions.0.id -> cmi.interactions.n.id).
func lookup(version Version, name string) (element, bool) {
	key := indexRe.ReplaceAllString(name, ".n.")
	if version == Version12 {
		e, ok := elements12[key]
		return e, ok
	}
	e, ok := elements2004[key]
	return e, ok
}

func isKeyword(name string) bool {
	return strings.HasSuffix(name, "._children") || strings.HasSuffix(name, "._count") || name == "cmi._version"
}
