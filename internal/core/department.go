package core

import (
	"fmt"
	"strings"
)

// Department is a budget-holding unit aggregating several categories.
type Department string

const (
	DeptHR         Department = "HR"
	DeptIT         Department = "IT"
	DeptMarketing  Department = "Marketing"
	DeptOperations Department = "Operations"
)

var departments = []Department{DeptHR, DeptIT, DeptMarketing, DeptOperations}

// Departments returns the departments in iteration order.
func Departments() []Department {
	return append([]Department(nil), departments...)
}

// DepartmentFor resolves a category to exactly one department. Anything not
// listed explicitly falls back to Operations.
func DepartmentFor(c Category) Department {
	switch c {
	case Software, Hardware, OfficeSupplies:
		return DeptIT
	case Marketing:
		return DeptMarketing
	case Health, Insurance:
		return DeptHR
	default:
		return DeptOperations
	}
}

// CategoriesOf lists the categories mapped to d, in enumeration order.
func CategoriesOf(d Department) []Category {
	var out []Category
	for _, c := range categories {
		if DepartmentFor(c) == d {
			out = append(out, c)
		}
	}
	return out
}

func (d Department) String() string {
	return string(d)
}

// ParseDepartment matches a department name, ignoring case.
func ParseDepartment(s string) (Department, error) {
	s = strings.TrimSpace(s)
	for _, d := range departments {
		if strings.EqualFold(string(d), s) {
			return d, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDepartment, s)
}
