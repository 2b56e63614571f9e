// Package inmemdb stores every entity in process memory. It backs the tests and local demos.
package inmemdb

import (
	"sync"

	"github.com/openschool/campus/core/course"
	"github.com/openschool/campus/core/enrollment"
	"github.com/openschool/campus/core/payment"
	"github.com/openschool/campus/core/submission"
	"github.com/openschool/campus/core/user"
)

type (
	DB struct {
		user       *userTable
		course     *courseTable
		enrollment *enrollmentTable
		submission *submissionTable
		payment    *paymentTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	courseTable struct {
		sync.RWMutex
		courses   map[string]*course.Course
		units     map[string]*course.UnitTemplate
		materials map[string]*course.Material
	}

	enrollmentTable struct {
		sync.RWMutex
		enrollments map[string]*enrollment.Enrollment
		completions map[[2]string]enrollment.MaterialCompletion // {enrollment ID, material ID}
		data        map[[2]string]enrollment.MaterialData
	}

	submissionTable struct {
		sync.RWMutex
		table map[string]*submission.Submission
	}

	paymentTable struct {
		sync.RWMutex
		table map[string]*payment.Method
	}
)

func Open() *DB {
	return &DB{
		user: &userTable{table: make(map[string]*user.User)},
		course: &courseTable{
			courses:   make(map[string]*course.Course),
			units:     make(map[string]*course.UnitTemplate),
			materials: make(map[string]*course.Material),
		},
		enrollment: &enrollmentTable{
			enrollments: make(map[string]*enrollment.Enrollment),
			completions: make(map[[2]string]enrollment.MaterialCompletion),
			data:        make(map[[2]string]enrollment.MaterialData),
		},
		submission: &submissionTable{table: make(map[string]*submission.Submission)},
		payment:    &paymentTable{table: make(map[string]*payment.Method)},
	}
}
