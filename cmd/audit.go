package cmd

import (
	"college-records/internal/config"
	domain "college-records/internal/domain/academic"
	"college-records/pkg/logger"

	"github.com/spf13/cobra"
)

var (
	auditSemester int
	auditCollege  string
	auditFix      bool
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Consistency audits over academic records",
}

var auditPlacementCmd = &cobra.Command{
	Use:   "placement",
	Short: "Find enrollments whose offering crosses the student's college or department",
	Long: `List enrollments of one semester whose offering belongs to a different
college or department than the student. With --fix each violation is moved to
the matching offering in the student's own section when one exists.`,
	RunE: runAuditPlacement,
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditPlacementCmd)

	auditPlacementCmd.Flags().IntVar(&auditSemester, "semester", 0, "Semester to audit (1-12)")
	auditPlacementCmd.Flags().StringVar(&auditCollege, "college", "", "Limit to one college")
	auditPlacementCmd.Flags().BoolVar(&auditFix, "fix", false, "Repair violations instead of only reporting them")
	auditPlacementCmd.MarkFlagRequired("semester")
}

func runAuditPlacement(cmd *cobra.Command, args []string) error {
	collegeID, err := optionalUUID("college", auditCollege)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), config.Get(), false)
	if err != nil {
		logger.Error("Failed to initialize application: %v", err)
		return err
	}
	defer a.Close()

	report, err := a.maintenance.AuditPlacement(cmd.Context(), &domain.AuditPlacementRequest{
		Semester:  auditSemester,
		CollegeID: collegeID,
		Fix:       auditFix,
	})
	if err != nil {
		logger.Error("Placement audit failed: %v", err)
		return err
	}
	return printJSON(report)
}
