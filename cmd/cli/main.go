package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/acadgrid/timetabler/internal/csvio"
	"github.com/acadgrid/timetabler/internal/solver"
	"github.com/acadgrid/timetabler/pkg/model"
)

func main() {
	// Define arguments
	jsonPtr := flag.String("json", "", "Path to a JSON problem file; when set the CSV flags are ignored")
	roomsPtr := flag.String("rooms", "", "Path to the rooms CSV file")
	slotsPtr := flag.String("slots", "", "Path to the time-slots CSV file")
	teachersPtr := flag.String("teachers", "", "Path to the teachers CSV file")
	coursesPtr := flag.String("courses", "", "Path to the courses CSV file")
	groupsPtr := flag.String("groups", "", "Path to the student-groups CSV file")
	curriculumPtr := flag.String("curriculum", "", "Path to the curriculum CSV file")
	configPtr := flag.String("config", "", "Path to the scheduling configuration JSON file")
	outPtr := flag.String("out", "timetable.csv", "Path to the file where the solved timetable will be written")
	violationsPtr := flag.String("violations", "", "Path to the file where the constraint breakdown will be written; if empty, no breakdown is exported")
	budgetPtr := flag.Duration("budget", 30*time.Second, "Wall-clock budget of the optimization phase")
	workersPtr := flag.Int("workers", 0, "Number of parallel move evaluators; 0 uses all CPUs")
	seedPtr := flag.Int64("seed", 0, "Random seed for reproducible runs; 0 seeds from the clock")
	feasibleStopPtr := flag.Bool("feasible-stop", false, "Stop as soon as a feasible timetable is found")
	flag.Parse()

	// Extract input
	var problem *model.Problem
	var err error
	if *jsonPtr != "" {
		problem, err = model.InputFromJSON(*jsonPtr)
	} else {
		if *roomsPtr == "" || *slotsPtr == "" || *teachersPtr == "" || *coursesPtr == "" ||
			*groupsPtr == "" || *curriculumPtr == "" || *configPtr == "" {
			log.Fatal("either -json or the full set of CSV flags (-rooms, -slots, -teachers, -courses, -groups, -curriculum, -config) must be specified")
		}
		problem, err = csvio.LoadProblem(csvio.Files{
			Rooms:      *roomsPtr,
			Slots:      *slotsPtr,
			Teachers:   *teachersPtr,
			Courses:    *coursesPtr,
			Groups:     *groupsPtr,
			Curriculum: *curriculumPtr,
			Config:     *configPtr,
		})
	}
	if err != nil {
		log.Fatalf("cannot load problem: %v", err)
	}

	// Solve
	engine := solver.New(solver.Options{
		TimeBudget:     *budgetPtr,
		Workers:        *workersPtr,
		Seed:           *seedPtr,
		StopOnFeasible: *feasibleStopPtr,
	})
	solution, err := engine.Solve(context.Background(), problem)
	if err != nil {
		log.Fatalf("an error occurred during solving: %v", err)
	}

	// Export results
	if err := csvio.WriteTimetable(*outPtr, solution); err != nil {
		log.Fatalf("cannot write timetable: %v", err)
	}
	if *violationsPtr != "" {
		if err := csvio.WriteViolations(*violationsPtr, solution); err != nil {
			log.Fatalf("cannot write violations: %v", err)
		}
	}

	fmt.Printf("Lessons: %v\n", len(problem.Lessons))
	fmt.Printf("Score: %v\n", solution.Score)
	for _, violation := range solution.Violations {
		severity := "soft"
		if violation.Hard {
			severity = "hard"
		}
		fmt.Printf("  %v (%v): %v\n", violation.Constraint, severity, violation.Penalty)
	}

	if !solution.Feasible() {
		os.Exit(20)
	}
}
