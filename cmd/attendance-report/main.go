package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sms-core-api/internal/dto"
	"github.com/noah-isme/sms-core-api/internal/repository"
	"github.com/noah-isme/sms-core-api/internal/service"
	"github.com/noah-isme/sms-core-api/pkg/config"
	"github.com/noah-isme/sms-core-api/pkg/database"
	"github.com/noah-isme/sms-core-api/pkg/logger"
)

func main() {
	var (
		courseID  string
		threshold float64
		format    string
		outDir    string
		timeout   time.Duration
	)

	flag.StringVar(&courseID, "course", "", "Restrict the report to one course ID")
	flag.Float64Var(&threshold, "threshold", 0, "Attendance percentage threshold (0 uses POLICY_LOW_ATTENDANCE_THRESHOLD)")
	flag.StringVar(&format, "format", "csv", "Output format: csv or pdf")
	flag.StringVar(&outDir, "out", ".", "Directory to write the report into")
	flag.DurationVar(&timeout, "timeout", time.Minute, "Overall timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close()

	courses := repository.NewCourseRepository(db)
	attendance := service.NewAttendanceService(service.AttendanceDeps{
		Tx:          repository.NewTxManager(db),
		Repo:        repository.NewAttendanceRepository(db),
		Enrollments: repository.NewEnrollmentRepository(db),
		Students:    repository.NewStudentRepository(db),
		Courses:     courses,
	}, cfg.Policy, nil, logr)

	body, _, filename, err := attendance.ExportLowAttendance(ctx, dto.LowAttendanceQuery{
		CourseID:  courseID,
		Threshold: threshold,
		Format:    format,
	})
	if err != nil {
		logr.Fatal("failed to build report", zap.Error(err))
	}

	path := filepath.Join(outDir, filename)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		logr.Fatal("failed to write report", zap.String("path", path), zap.Error(err))
	}
	fmt.Println(path)
}
