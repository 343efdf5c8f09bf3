// Command sealcreds prepares the encrypted database credentials file read
// by sources -e/-k.
//
//	sealcreds keygen <keyfile>
//	sealcreds seal <keyfile> <dsnfile> <sealedfile>
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/suspectsources/internal/common"
	"github.com/dmitrijs2005/suspectsources/internal/cryptox"
)

var errUsage = errors.New("usage: sealcreds keygen <keyfile> | sealcreds seal <keyfile> <dsnfile> <sealedfile>")

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	switch args[0] {
	case "keygen":
		if len(args) != 2 {
			return errUsage
		}
		if _, err := os.Stat(args[1]); err == nil {
			return fmt.Errorf("%s already exists", args[1])
		}
		key := cryptox.GenerateKey()
		defer common.WipeByteArray(key)
		if err := cryptox.WriteKeyFile(args[1], key); err != nil {
			return err
		}
		fmt.Fprintf(out, "key written to %s\n", args[1])
	case "seal":
		if len(args) != 4 {
			return errUsage
		}
		if err := cryptox.SealFile(args[1], args[2], args[3]); err != nil {
			return err
		}
		fmt.Fprintf(out, "sealed credentials written to %s\n", args[3])
	default:
		return errUsage
	}
	return nil
}
