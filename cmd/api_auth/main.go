// Command api_auth stores, or reads back, the organisation id and API key
// used by the broker tools.
//
//	api_auth [-s ORG_ID API_KEY] [-v]
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"cloudpico-analysis/internal/cli"
	"cloudpico-analysis/internal/credentials"
)

const appName = "api_auth"

var version = "dev"

func main() {
	err := run(os.Args[1:], os.Stdout, os.Stderr)
	os.Exit(cli.Code(appName, err, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := cli.NewFlagSet(appName, "[-s ORG_ID API_KEY] [-v]", stderr)
	set := fs.Bool("s", false, "store ORG_ID and API_KEY")
	verbose := fs.Bool("v", false, "report narrative to stderr")

	positional, err := cli.ParseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if *set && len(positional) != 2 {
		return cli.UsageError(fs, "-s requires ORG_ID and API_KEY")
	}
	if !*set && len(positional) != 0 {
		return cli.UsageError(fs, "unexpected arguments")
	}

	env, err := cli.Setup(appName, version, stderr, *verbose)
	if err != nil {
		return err
	}
	store := credentials.NewStore(env.Config.CredentialsPath)
	env.Logger.Debug("credential store", "path", store.Path())

	var auth credentials.APIAuth
	if *set {
		auth = credentials.APIAuth{OrgID: positional[0], APIKey: positional[1]}
		if err := store.Save(auth); err != nil {
			return cli.Failf(cli.ExitFailure, "%v", err)
		}
		env.Logger.Info("credentials saved", "path", store.Path(), "org_id", auth.OrgID)
	} else {
		auth, err = store.Load()
		if err != nil {
			return cli.Failf(cli.ExitFailure, "%v", err)
		}
	}

	b, err := json.Marshal(auth)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, string(b))
	return err
}
