package main

import (
	"context"
)

func (cli *commandLine) resetPassword(login, pwd string) error {
	return cli.accSvc.ResetPassword(context.Background(), login, pwd)
}
