package workflow

import (
	"fmt"
	"sort"

	"github.com/civium/permit-review-service/internal/domain"
)

// dependenciesByDepartment builds the distinct set of upstream department IDs
// per department from the requirement assignment configuration, sorted for
// deterministic iteration.
func dependenciesByDepartment(assignments []*domain.RequirementAssignment, procedureType string) map[int64][]int64 {
	sets := make(map[int64]map[int64]struct{})
	for _, assignment := range assignments {
		if assignment.ProcedureType != procedureType || assignment.DependsOnDepartmentID == nil {
			continue
		}
		set, ok := sets[assignment.DepartmentID]
		if !ok {
			set = make(map[int64]struct{})
			sets[assignment.DepartmentID] = set
		}
		set[*assignment.DependsOnDepartmentID] = struct{}{}
	}

	deps := make(map[int64][]int64, len(sets))
	for departmentID, set := range sets {
		ids := make([]int64, 0, len(set))
		for id := range set {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		deps[departmentID] = ids
	}
	return deps
}

// requirementFieldsByDepartment groups the requirement field IDs per owning
// department, ordered by review priority then field ID (the order assignments
// are loaded in).
func requirementFieldsByDepartment(assignments []*domain.RequirementAssignment, procedureType string) map[int64][]int64 {
	fields := make(map[int64][]int64)
	for _, assignment := range assignments {
		if assignment.ProcedureType != procedureType {
			continue
		}
		fields[assignment.DepartmentID] = append(fields[assignment.DepartmentID], assignment.FieldID)
	}
	return fields
}

// validateDependencyGraph checks the dependency configuration of a procedure
// flow before any workflow state is created. A dependency on a department
// outside the flow, or a dependency cycle, would leave departments permanently
// pending, so both are rejected eagerly.
func validateDependencyGraph(entries []*domain.FlowConfigurationEntry, assignments []*domain.RequirementAssignment, procedureType string) error {
	participants := make(map[int64]struct{}, len(entries))
	for _, entry := range entries {
		participants[entry.DepartmentID] = struct{}{}
	}

	deps := dependenciesByDepartment(assignments, procedureType)

	for departmentID := range deps {
		if _, ok := participants[departmentID]; !ok {
			continue
		}
		for _, dep := range deps[departmentID] {
			if _, ok := participants[dep]; !ok {
				return &domain.DependencyError{
					ProcedureType: procedureType,
					DepartmentID:  departmentID,
					Reason:        fmt.Sprintf("depends on department %d which is not part of the flow", dep),
				}
			}
		}
	}

	return detectCycle(participants, deps, procedureType)
}

// DFS colors for cycle detection.
const (
	colorWhite = iota
	colorGray
	colorBlack
)

// detectCycle runs a depth-first search over the dependency edges restricted
// to flow participants and reports the first cycle found.
func detectCycle(participants map[int64]struct{}, deps map[int64][]int64, procedureType string) error {
	colors := make(map[int64]int, len(participants))

	ordered := make([]int64, 0, len(participants))
	for id := range participants {
		ordered = append(ordered, id)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	var visit func(id int64) error
	visit = func(id int64) error {
		colors[id] = colorGray
		for _, dep := range deps[id] {
			if _, ok := participants[dep]; !ok {
				continue
			}
			switch colors[dep] {
			case colorGray:
				return &domain.DependencyError{
					ProcedureType: procedureType,
					DepartmentID:  id,
					Reason:        fmt.Sprintf("dependency cycle through department %d", dep),
				}
			case colorWhite:
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		colors[id] = colorBlack
		return nil
	}

	for _, id := range ordered {
		if colors[id] == colorWhite {
			if err := visit(id); err != nil {
				return err
			}
		}
	}
	return nil
}
