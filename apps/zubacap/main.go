package main

import (
	"fmt"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/zubacap/zubacap-go/core"
	"github.com/zubacap/zubacap-go/core/identity"
	"github.com/zubacap/zubacap-go/core/session"
	"github.com/zubacap/zubacap-go/core/training"
	"github.com/zubacap/zubacap-go/gateway/rest"
)

func main() {
	conf := core.NewConfig()

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	identity.InitValidators(validate, translator)

	creds := session.NewFileCredentials(conf.Session.CredentialFile)
	client := rest.NewClient(conf, creds)
	st := session.NewStore(client, creds, validate, conf)
	client.OnSessionExpired(func() {
		st.SessionExpired()
		fmt.Fprintln(os.Stderr, "session expired, sign in again with `zubacap login`")
	})

	cli := &commandLine{
		st:     st,
		svc:    training.NewService(client),
		client: client,
		out:    os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "zubacap: %v\n", err)
		}
		os.Exit(1)
	}
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
