package main

import (
	"context"

	"github.com/openschool/campus/core"
	"github.com/openschool/campus/core/user"
)

// addUser updates or creates an active user.User with the given roles
func (cli *commandLine) addUser(name, uname, email, pwd string, roles []string) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: []string{uname, email}})
	if err != nil {
		if !core.IsNotFound(err) {
			return err
		}
		usr = user.User{
			Username:  uname,
			Email:     email,
			CreatedAt: user.NowFunc().UTC(),
		}
	}
	if name = core.CleanString(name); name != "" {
		usr.Name = name
	}
	if usr.Name == "" {
		usr.Name = uname
	}
	usr.Roles = roles
	usr.UpdatedAt = user.NowFunc().UTC()
	usr.SetActive(true)
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	_, err = cli.usrRepo.UpdateOrCreateUser(ctx, usr)
	return err
}
