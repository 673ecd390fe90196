package main

import (
	"context"
	"fmt"
)

// addUser updates or creates the admin account owning email.
func (cli *commandLine) addUser(email, pwd string) error {
	acc, err := cli.accSvc.EnsureAdmin(context.Background(), email, pwd)
	if err != nil {
		return err
	}
	fmt.Printf("admin %q is ready\n", acc.Username)
	return nil
}
