package server

import (
	"crypto/rand"
	"encoding/base64"
	"io"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	app "foodscan/src/app"
	cfg "foodscan/src/configuration"
	db "foodscan/src/repository"
)

type (
	AuthHandler struct {
		oidcProvider           *oidc.Provider
		dataStore              db.SessionDB
		AuthConfig             *oauth2.Config
		URL                    string
		ClientID               string
		AccessTokenCookieName  string
		RefreshTokenCookieName string
		IDTokenCookieName      string
		oauthStateString       string
	}
)

func randString(nByte int) (string, error) {
	b := make([]byte, nByte)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func NewAuthHandler(config *cfg.Properties) *AuthHandler {
	provider, err := oidc.NewProvider(oauth2.NoContext, config.Auth.Host)
	if err != nil {
		logrus.Errorf("can not create OIDC provider: %v", err)
		return &AuthHandler{}
	}

	authConfig := &oauth2.Config{
		ClientID:     config.Auth.ID,
		ClientSecret: config.Auth.Secret,
		RedirectURL:  config.Auth.Redirect,
		Endpoint:     provider.Endpoint(),
		Scopes:       []string{oidc.ScopeOpenID, "api"},
	}
	dataConnect, err := db.NewSessionDataBase(config)
	if err != nil {
		logrus.Fatalf("session database not respond %v", err)
		return nil
	}
	if !dataConnect.Connect() {
		logrus.Fatal("can not connect to session database")
		return nil
	}

	return &AuthHandler{
		dataStore:              dataConnect,
		oidcProvider:           provider,
		AuthConfig:             authConfig,
		URL:                    config.Server.Name,
		ClientID:               config.Auth.ID,
		AccessTokenCookieName:  config.Auth.AccessTokenCookieName,
		RefreshTokenCookieName: config.Auth.RefreshTokenCookieName,
		IDTokenCookieName:      config.Auth.IDTokenCookieName,
	}
}

func (a *AuthHandler) Login(c *gin.Context) {
	a.oauthStateString, _ = randString(16)
	c.JSON(http.StatusOK, gin.H{"ref": a.AuthConfig.AuthCodeURL(a.oauthStateString)})
}

func (a *AuthHandler) Signin(c *gin.Context) {
	a.oauthStateString, _ = randString(16)
	c.Redirect(http.StatusFound, a.AuthConfig.AuthCodeURL(a.oauthStateString))
}

func (a *AuthHandler) Logout(c *gin.Context) {
	c.SetCookie(a.AccessTokenCookieName, "", int(-1), "/", a.URL, false, false)
	c.SetCookie(a.RefreshTokenCookieName, "", int(-1), "/", a.URL, false, false)
	c.SetCookie(a.IDTokenCookieName, "", int(-1), "/", a.URL, false, false)
}

func (a *AuthHandler) Callback(c *gin.Context) {
	state := c.Query("state")
	code := c.Query("code")
	if state != a.oauthStateString {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"message": "no current state found"})
		return
	}

	// Exchange the authorization code for access, refresh, and id tokens
	token, err := a.AuthConfig.Exchange(oauth2.NoContext, code)
	if err != nil {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"message": "Error getting access token: " + err.Error()})
		return
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"message": "No ID token found in request to /callback"})
		return
	}

	// Write access, refresh, and id tokens to http-only cookies
	c.SetCookie(a.AccessTokenCookieName, token.AccessToken, int(3600), "/", a.URL, false, false)
	c.SetCookie(a.RefreshTokenCookieName, token.RefreshToken, int(3600), "/", a.URL, false, false)
	c.SetCookie(a.IDTokenCookieName, rawIDToken, int(3600), "/", a.URL, false, false)
	if err := a.dataStore.StoreSession(token.AccessToken, token.RefreshToken); err != nil {
		logrus.Errorf("can not store session: %v", err)
	}
	callback, err := c.Cookie("callback")
	if err != nil {
		logrus.Warnf("no callback cookie found: %v", err)
	}
	c.Redirect(http.StatusFound, callback)
}

func (a *AuthHandler) Account(c *gin.Context) {
	if !a.authorize(c) {
		c.IndentedJSON(http.StatusNonAuthoritativeInfo, gin.H{"message": "No Authorize to get resourse"})
		return
	}
	cookie, err := c.Cookie(a.IDTokenCookieName)
	if err != nil || cookie == "" {
		c.IndentedJSON(
			http.StatusNonAuthoritativeInfo,
			gin.H{"message": "No ID token found"})
		return
	}

	var verifier = a.oidcProvider.Verifier(&oidc.Config{ClientID: a.ClientID})
	idToken, err := verifier.Verify(oauth2.NoContext, cookie)
	if err != nil {
		c.IndentedJSON(
			http.StatusNonAuthoritativeInfo,
			gin.H{"message": "Error verifying ID token: " + err.Error()})
		return
	}

	var claims struct {
		Name     string `json:"nickname"`
		Picture  string `json:"picture"`
		Verified bool   `json:"email_verified"`
	}
	if err := idToken.Claims(&claims); err != nil {
		c.IndentedJSON(
			http.StatusNonAuthoritativeInfo,
			gin.H{"message": "Can not parse claims verifying ID token: " + err.Error()})
		return
	}
	user := app.User{
		ID:      claims.Name,
		Name:    claims.Name,
		Picture: claims.Picture,
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "payload": user})
}

func (a *AuthHandler) authorize(c *gin.Context) bool {
	// Note that in a production deployment we would also validate the token
	// signature and expiry, and attempt a refresh when expired.
	cookie, err := c.Cookie(a.AccessTokenCookieName)
	if err != nil || cookie == "" || !a.dataStore.VerifySession(cookie) {
		return false
	}
	return true
}
