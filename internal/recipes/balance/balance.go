// Package balance is the Tink Balance Check walkthrough: a client token,
// a user, a delegated user grant, and finally the account check report
package balance

import (
	"context"

	"github.com/kode4food/walkthrough/pkg/api"
	"github.com/kode4food/walkthrough/pkg/workflow"
)

const (
	ID    api.RecipeID = "tink-balance-check"
	Title              = "Tink Balance Check (US)"

	StepIntro       api.StepID = "Intro"
	StepClientToken api.StepID = "Step 1"
	StepCreateUser  api.StepID = "Step 2"
	StepUserToken   api.StepID = "Step 3"
	StepReport      api.StepID = "Step 4"

	PermalinkToken    = "$e/General.OAuth/token"
	PermalinkUser     = "$e/General.User/createUser"
	PermalinkDelegate = "$e/General.OAuth/authorizationDelegate"
	PermalinkReport   = "$e/Data%20v1.Account%20Verification/getReport"

	// Portal setting keys
	SettingClientID     = "client_id"
	SettingClientSecret = "client_secret"
	SettingMarket       = "market"
	SettingLocale       = "locale"

	DefaultClientID     = "YOUR_CLIENT_ID"
	DefaultClientSecret = "YOUR_CLIENT_SECRET"
	DefaultMarket       = "US"
	DefaultLocale       = "en_US"

	Scope = "user:create,authorization:grant,link-session:write," +
		"user:read,credentials:read"

	contentTypeForm = "application/x-www-form-urlencoded"
)

const (
	MsgMissingClientToken = "❌ Missing access token from Step 1"
	MsgMissingUserValues  = "❌ Missing required values from previous steps."
	MsgMissingUserToken   = "❌ Missing user access token from Step 3."
	MsgMissingReportCode  = "❌ Missing report code from Step 3."

	ErrTokenNotReceived  = "Access token not received. Please check client credentials."
	ErrUserNotCreated    = "User ID not found in response. Check your access token."
	ErrUserTokenMissing  = "User access token not received. Verify user ID and client token."
	ErrReportNotReturned = "No account report found in response."
)

var (
	needClientToken = api.Require(StepClientToken, "access_token")
	needUserID      = api.Require(StepCreateUser, "user_id")
	needReportCode  = api.Require(StepUserToken, "code")
)

const introMarkup = `
## 🔍 Tink Balance Check (US) – API Walkthrough

This guide walks you through integrating Tink's Balance Check functionality
via direct API calls (without SDK), covering:

1. Getting a **client access token**
2. Creating a **user**
3. Generating a **user access token**
4. Fetching the **Account Check report**

Make sure your credentials (client ID and secret) are ready before starting.
`

// Definition builds the walkthrough steps in execution order
func Definition(
	_ context.Context, _ workflow.Portal,
) (*workflow.Definition, error) {
	return workflow.NewBuilder().
		Step(StepIntro, "Overview", Intro).
		Step(StepClientToken, "Get Client Access Token", ClientToken).
		Step(StepCreateUser, "Create User", CreateUser).
		Step(StepUserToken, "Get User Access Token", UserToken).
		Step(StepReport, "Fetch Account Check Report", Report).
		Build()
}

// Intro describes the walkthrough
func Intro(*workflow.StepContext) *api.Directive {
	return workflow.Content(introMarkup)
}

// ClientToken requests a client access token with the client credentials
func ClientToken(c *workflow.StepContext) *api.Directive {
	return workflow.Endpoint(&api.EndpointCall{
		Permalink: PermalinkToken,
		Description: "Obtain a client access token using your Tink client " +
			"credentials.",
		Args: api.RequestArgs{
			Headers: map[string]string{
				"Content-Type": contentTypeForm,
			},
			Params: api.Args{
				"grant_type":    "client_credentials",
				"client_id":     c.Setting(SettingClientID, DefaultClientID),
				"client_secret": c.Setting(SettingClientSecret, DefaultClientSecret),
				"scope":         Scope,
			},
		},
		Verify: workflow.ExpectOK(ErrTokenNotReceived),
	})
}

// CreateUser creates a user under the client, authorized by the client
// token from Step 1
func CreateUser(c *workflow.StepContext) *api.Directive {
	found, missing := c.Resolve(needClientToken)
	if len(missing) > 0 {
		return workflow.Missing(MsgMissingClientToken, missing)
	}

	return workflow.Endpoint(&api.EndpointCall{
		Permalink:   PermalinkUser,
		Description: "Create a new user under your Tink client.",
		Args: api.RequestArgs{
			Headers: map[string]string{
				"Authorization": bearer(found.String(needClientToken)),
			},
			Body: api.Args{
				"external_user_id": nil,
				"market":           c.Setting(SettingMarket, DefaultMarket),
				"locale":           c.Setting(SettingLocale, DefaultLocale),
			},
		},
		Verify: workflow.ExpectOK(ErrUserNotCreated),
	})
}

// UserToken delegates an authorization grant for the user created in
// Step 2
func UserToken(c *workflow.StepContext) *api.Directive {
	found, missing := c.Resolve(needClientToken, needUserID)
	if len(missing) > 0 {
		return workflow.Missing(MsgMissingUserValues, missing)
	}

	userID := found.String(needUserID)
	return workflow.Endpoint(&api.EndpointCall{
		Permalink: PermalinkDelegate,
		Description: "Generate a user access token to access personal " +
			"financial data.",
		Args: api.RequestArgs{
			Headers: map[string]string{
				"Content-Type":  contentTypeForm,
				"Authorization": bearer(found.String(needClientToken)),
			},
			Params: api.Args{
				"grant_type": "user_credentials",
				"id_hint":    userID,
				"scope":      Scope,
				"user_id":    userID,
			},
		},
		Verify: workflow.ExpectOK(ErrUserTokenMissing),
	})
}

// Report fetches the account check report identified by the code from
// Step 3. The request is authorized with the Step 1 client token, not a
// user token
func Report(c *workflow.StepContext) *api.Directive {
	found, missing := c.Resolve(needClientToken, needReportCode)
	if len(missing) > 0 {
		if missing[0] == needClientToken {
			return workflow.Missing(MsgMissingUserToken, missing)
		}
		return workflow.Missing(MsgMissingReportCode, missing)
	}

	return workflow.Endpoint(&api.EndpointCall{
		Permalink:   PermalinkReport,
		Description: "Retrieve the Account Check report for the user.",
		Args: api.RequestArgs{
			Headers: map[string]string{
				"Authorization": bearer(found.String(needClientToken)),
			},
			Params: api.Args{
				"id": found.String(needReportCode),
			},
		},
		Verify: workflow.ExpectOK(ErrReportNotReturned),
	})
}

func bearer(token string) string {
	return "Bearer " + token
}
