package scorm

import (
	"strconv"
	"strings"
	"sync"
)

// ErrorCode is a SCORM runtime error code. The numbering follows SCORM 2004;
// SCORM 1.2 content reads the equivalent 1.2 code through GetLastError.
type ErrorCode int

const (
	NoError               ErrorCode = 0
	GeneralException      ErrorCode = 101
	AlreadyInitialized    ErrorCode = 103
	ContentTerminated     ErrorCode = 104
	TerminationBeforeInit ErrorCode = 112
	TerminationAfterTerm  ErrorCode = 113
	RetrieveBeforeInit    ErrorCode = 122
	RetrieveAfterTerm     ErrorCode = 123
	StoreBeforeInit       ErrorCode = 132
	StoreAfterTerm        ErrorCode = 133
	CommitBeforeInit      ErrorCode = 142
	CommitAfterTerm       ErrorCode = 143
	GeneralArgumentError  ErrorCode = 201
	GeneralCommitFailure  ErrorCode = 391
	UndefinedElement      ErrorCode = 401
	ValueNotInitialized   ErrorCode = 403
	ElementIsReadOnly     ErrorCode = 404
	ElementIsWriteOnly    ErrorCode = 405
	TypeMismatch          ErrorCode = 406
)

var errorStrings = map[ErrorCode]string{
	NoError:               "No Error",
	GeneralException:      "General Exception",
	AlreadyInitialized:    "Already Initialized",
	ContentTerminated:     "Content Instance Terminated",
	TerminationBeforeInit: "Termination Before Initialization",
	TerminationAfterTerm:  "Termination After Termination",
	RetrieveBeforeInit:    "Retrieve Data Before Initialization",
	RetrieveAfterTerm:     "Retrieve Data After Termination",
	StoreBeforeInit:       "Store Data Before Initialization",
	StoreAfterTerm:        "Store Data After Termination",
	CommitBeforeInit:      "Commit Before Initialization",
	CommitAfterTerm:       "Commit After Termination",
	GeneralArgumentError:  "General Argument Error",
	GeneralCommitFailure:  "General Commit Failure",
	UndefinedElement:      "Undefined Data Model Element",
	ValueNotInitialized:   "Data Model Element Value Not Initialized",
	ElementIsReadOnly:     "Data Model Element Is Read Only",
	ElementIsWriteOnly:    "Data Model Element Is Write Only",
	TypeMismatch:          "Data Model Element Type Mismatch",
}

// codes12 maps 2004 codes to their SCORM 1.2 counterparts.
var codes12 = map[ErrorCode]int{
	NoError:               0,
	GeneralException:      101,
	AlreadyInitialized:    101,
	ContentTerminated:     101,
	TerminationBeforeInit: 301,
	TerminationAfterTerm:  101,
	RetrieveBeforeInit:    301,
	RetrieveAfterTerm:     101,
	StoreBeforeInit:       301,
	StoreAfterTerm:        101,
	CommitBeforeInit:      301,
	CommitAfterTerm:       101,
	GeneralArgumentError:  201,
	GeneralCommitFailure:  101,
	UndefinedElement:      401,
	ValueNotInitialized:   0,
	ElementIsReadOnly:     403,
	ElementIsWriteOnly:    404,
	TypeMismatch:          405,
}

var errorStrings12 = map[int]string{
	0:   "No error",
	101: "General exception",
	201: "Invalid argument error",
	202: "Element cannot have children",
	203: "Element not an array. Cannot have count",
	301: "Not initialized",
	401: "Not implemented error",
	402: "Invalid set value, element is a keyword",
	403: "Element is read only",
	404: "Element is write only",
	405: "Incorrect Data Type",
}

// Committer persists a snapshot of the runtime data.
type Committer interface {
	Commit(data Data) error
}

// CommitFunc adapts a function to the Committer interface.
type CommitFunc func(data Data) error

func (f CommitFunc) Commit(data Data) error { return f(data) }

type state int

const (
	notInitialized state = iota
	running
	terminated
)

// Runtime is the API object a SCO talks to. All methods are safe for concurrent use.
type Runtime struct {
	mu         sync.Mutex
	version    Version
	data       Data
	state      state
	lastErr    ErrorCode
	diagnostic string
	dirty      bool
	committer  Committer
}

func NewRuntime(version Version, data Data, committer Committer) *Runtime {
	if data == nil {
		data = make(Data)
	}
	return &Runtime{version: version, data: data.Clone(), committer: committer}
}

func (r *Runtime) Version() Version { return r.version }

// Data returns a snapshot of the current data model.
func (r *Runtime) Data() Data {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.data.Clone()
}

func (r *Runtime) Initialize(param string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case param != "":
		return r.fail(GeneralArgumentError, "parameter must be empty")
	case r.state == running:
		return r.fail(AlreadyInitialized, "")
	case r.state == terminated:
		return r.fail(ContentTerminated, "")
	}
	r.state = running
	return r.ok()
}

// Terminate commits pending changes and ends the session.
func (r *Runtime) Terminate(param string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case param != "":
		return r.fail(GeneralArgumentError, "parameter must be empty")
	case r.state == notInitialized:
		return r.fail(TerminationBeforeInit, "")
	case r.state == terminated:
		return r.fail(TerminationAfterTerm, "")
	}
	if res := r.commit(); res != "true" {
		return res
	}
	r.state = terminated
	return r.ok()
}

func (r *Runtime) GetValue(name string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case r.state == notInitialized:
		r.fail(RetrieveBeforeInit, "")
		return ""
	case r.state == terminated:
		r.fail(RetrieveAfterTerm, "")
		return ""
	case name == "":
		r.fail(GeneralArgumentError, "element name is required")
		return ""
	}

	if strings.HasSuffix(name, "._count") {
		r.ok()
		return strconv.Itoa(r.data.count(strings.TrimSuffix(name, "._count")))
	}
	if strings.HasSuffix(name, "._children") {
		children := children2004
		if r.version == Version12 {
			children = children12
		}
		if v, ok := children[name]; ok {
			r.ok()
			return v
		}
		r.fail(UndefinedElement, name)
		return ""
	}

	el, ok := lookup(r.version, name)
	if !ok {
		r.fail(UndefinedElement, name)
		return ""
	}
	if el.access == writeOnly {
		r.fail(ElementIsWriteOnly, name)
		return ""
	}
	v, ok := r.data[name]
	if !ok && r.version == Version2004 && el.access != readOnly {
		r.fail(ValueNotInitialized, name)
		return ""
	}
	r.ok()
	return v
}

func (r *Runtime) SetValue(name, value string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case r.state == notInitialized:
		return r.fail(StoreBeforeInit, "")
	case r.state == terminated:
		return r.fail(StoreAfterTerm, "")
	case name == "":
		return r.fail(GeneralArgumentError, "element name is required")
	case isKeyword(name):
		return r.fail(ElementIsReadOnly, name)
	}

	el, ok := lookup(r.version, name)
	if !ok {
		return r.fail(UndefinedElement, name)
	}
	if el.access == readOnly {
		return r.fail(ElementIsReadOnly, name)
	}
	if el.valid != nil && !el.valid(value) {
		return r.fail(TypeMismatch, name+": "+value)
	}
	r.data[name] = value
	r.dirty = true
	return r.ok()
}

func (r *Runtime) Commit(param string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case param != "":
		return r.fail(GeneralArgumentError, "parameter must be empty")
	case r.state == notInitialized:
		return r.fail(CommitBeforeInit, "")
	case r.state == terminated:
		return r.fail(CommitAfterTerm, "")
	}
	return r.commit()
}

// commit hands a snapshot to the committer; callers hold the lock.
func (r *Runtime) commit() string {
	if !r.dirty || r.committer == nil {
		return r.ok()
	}
	if err := r.committer.Commit(r.data.Clone()); err != nil {
		return r.fail(GeneralCommitFailure, err.Error())
	}
	r.dirty = false
	return r.ok()
}

func (r *Runtime) GetLastError() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.version == Version12 {
		return strconv.Itoa(codes12[r.lastErr])
	}
	return strconv.Itoa(int(r.lastErr))
}

func (r *Runtime) GetErrorString(code string) string {
	n, err := strconv.Atoi(code)
	if err != nil {
		return ""
	}
	if r.version == Version12 {
		return errorStrings12[n]
	}
	return errorStrings[ErrorCode(n)]
}

func (r *Runtime) GetDiagnostic(code string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if code == "" || code == strconv.Itoa(int(r.lastErr)) {
		if r.diagnostic != "" {
			return r.diagnostic
		}
		return errorStrings[r.lastErr]
	}
	return r.GetErrorString(code)
}

func (r *Runtime) LastError() ErrorCode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

// SCORM 1.2 API names

func (r *Runtime) LMSInitialize(param string) string     { return r.Initialize(param) }
func (r *Runtime) LMSFinish(param string) string         { return r.Terminate(param) }
func (r *Runtime) LMSGetValue(name string) string        { return r.GetValue(name) }
func (r *Runtime) LMSSetValue(name, value string) string { return r.SetValue(name, value) }
func (r *Runtime) LMSCommit(param string) string         { return r.Commit(param) }
func (r *Runtime) LMSGetLastError() string               { return r.GetLastError() }
func (r *Runtime) LMSGetErrorString(code string) string  { return r.GetErrorString(code) }
func (r *Runtime) LMSGetDiagnostic(code string) string   { return r.GetDiagnostic(code) }

func (r *Runtime) ok() string {
	r.lastErr = NoError
	r.diagnostic = ""
	return "true"
}

func (r *Runtime) fail(code ErrorCode, diagnostic string) string {
	r.lastErr = code
	r.diagnostic = diagnostic
	return "false"
}
