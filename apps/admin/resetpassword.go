package main

import (
	"context"

	"github.com/openschool/campus/core"
	"github.com/openschool/campus/core/user"
)

func (cli *commandLine) resetPassword(uname, pwd string) error {
	ctx := context.Background()
	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: []string{core.CleanString(uname, true /* lower */)}})
	if err != nil {
		return err
	}
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	usr.UpdatedAt = user.NowFunc().UTC()
	_, err = cli.usrRepo.UpdateUser(ctx, usr)
	return err
}
