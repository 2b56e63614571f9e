package main

import (
	"context"

	"github.com/openschool/campus/core/enrollment"
)

// setHold puts an enrollment on hold, or releases it. Students cannot work on an enrollment on hold.
func (cli *commandLine) setHold(enrollmentID string, onHold bool) error {
	ctx := context.Background()
	enr, err := cli.enrRepo.GetEnrollment(ctx, enrollmentID)
	if err != nil {
		return err
	}
	if enr.OnHold == onHold {
		return nil
	}
	enr.OnHold = onHold
	enr.UpdatedAt = enrollment.NowFunc().UTC()
	_, err = cli.enrRepo.UpdateEnrollment(ctx, enr)
	return err
}
