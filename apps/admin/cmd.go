package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"syscall"

	"golang.org/x/term"

	"github.com/openschool/campus/core/enrollment"
	"github.com/openschool/campus/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db      *sql.DB
	usrRepo user.Repository
	enrRepo enrollment.Repository
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  adduser -username USERNAME -email EMAIL [-name NAME] [-role admin|tutor|auditor|student] - create or update a user")
	fmt.Println("  resetpassword -username USERNAME|EMAIL - reset user's password")
	fmt.Println("  hold -enrollment ID [-release] - put an enrollment on hold, or release it")
	fmt.Println("  migrate COMMAND [ARGS] - run a goose migration command (up, down, status, ...)")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserUname := addUserCmd.String("username", "", "The user's username.")
	addUserEmail := addUserCmd.String("email", "", "The user's email. The password will be prompted next.")
	addUserName := addUserCmd.String("name", "", "The user's full name.")
	addUserRole := addUserCmd.String("role", "admin", "One of admin, tutor, auditor or student.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username or email. The password will be prompted next.")

	holdCmd := flag.NewFlagSet("hold", flag.ContinueOnError)
	holdEnrollment := holdCmd.String("enrollment", "", "The enrollment id.")
	holdRelease := holdCmd.Bool("release", false, "Release the enrollment instead.")

	switch args[1] {
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		roles, ok := cliRoles[*addUserRole]
		if *addUserUname == "" || *addUserEmail == "" || !ok {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserName, *addUserUname, *addUserEmail, pwd, roles)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordUname, pwd)

	case "hold":
		if err := holdCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *holdEnrollment == "" {
			holdCmd.Usage()
			return errHelp
		}
		return cli.setHold(*holdEnrollment, !*holdRelease)

	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	default:
		cli.printUsage()
		return errHelp
	}
}

var cliRoles = map[string][]string{
	"admin":   {user.RoleAdminOwner},
	"tutor":   user.TutorRoles,
	"auditor": user.AuditorRoles,
	"student": user.StudentRoles,
}

func promptPassword() (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}
