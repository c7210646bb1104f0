package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"time"
)

// Exercises a running accountd-api end to end: register, login, refresh,
// replay the spent refresh token, fetch the profile, logout, delete the
// account. Exits non-zero on the first deviation.

type tokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type sessionResponse struct {
	User struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
	Tokens tokenPair `json:"tokens"`
}

func main() {
	base := os.Getenv("ACCOUNTD_API_URL")
	if base == "" {
		base = "http://localhost:8080"
	}
	client := &http.Client{Timeout: 5 * time.Second}

	email := fmt.Sprintf("smoke-%d@example.com", rand.New(rand.NewSource(time.Now().UnixNano())).Int63())
	password := "Smoke-Passw0rd!"

	var session sessionResponse
	status := call(client, base, "POST", "/v1/auth/register",
		map[string]any{"email": email, "password": password}, "", &session)
	if status != http.StatusCreated {
		log.Fatalf("register: expected 201, got %d", status)
	}
	if session.Tokens.AccessToken == "" || session.Tokens.RefreshToken == "" {
		log.Fatal("register: incomplete token pair")
	}

	var login sessionResponse
	status = call(client, base, "POST", "/v1/auth/login",
		map[string]any{"email": email, "password": password}, "", &login)
	if status != http.StatusOK {
		log.Fatalf("login: expected 200, got %d", status)
	}

	var refreshed struct {
		Tokens tokenPair `json:"tokens"`
	}
	status = call(client, base, "POST", "/v1/auth/refresh",
		map[string]any{"refresh_token": login.Tokens.RefreshToken}, "", &refreshed)
	if status != http.StatusOK {
		log.Fatalf("refresh: expected 200, got %d", status)
	}
	if refreshed.Tokens.RefreshToken == login.Tokens.RefreshToken {
		log.Fatal("refresh: token was not rotated")
	}

	// One-time use: replaying the spent token must fail.
	status = call(client, base, "POST", "/v1/auth/refresh",
		map[string]any{"refresh_token": login.Tokens.RefreshToken}, "", nil)
	if status != http.StatusUnauthorized {
		log.Fatalf("spent refresh token: expected 401, got %d", status)
	}

	var profile struct {
		User struct {
			Email string `json:"email"`
		} `json:"user"`
	}
	status = call(client, base, "GET", "/v1/user/profile", nil, refreshed.Tokens.AccessToken, &profile)
	if status != http.StatusOK {
		log.Fatalf("profile: expected 200, got %d", status)
	}
	if profile.User.Email != email {
		log.Fatalf("profile: wrong account, got %s", profile.User.Email)
	}

	status = call(client, base, "POST", "/v1/auth/logout",
		map[string]any{"refresh_token": refreshed.Tokens.RefreshToken}, "", nil)
	if status != http.StatusOK {
		log.Fatalf("logout: expected 200, got %d", status)
	}
	status = call(client, base, "POST", "/v1/auth/refresh",
		map[string]any{"refresh_token": refreshed.Tokens.RefreshToken}, "", nil)
	if status != http.StatusUnauthorized {
		log.Fatalf("refresh after logout: expected 401, got %d", status)
	}

	status = call(client, base, "DELETE", "/v1/user/account", nil, refreshed.Tokens.AccessToken, nil)
	if status != http.StatusOK {
		log.Fatalf("delete account: expected 200, got %d", status)
	}
	status = call(client, base, "GET", "/v1/user/profile", nil, refreshed.Tokens.AccessToken, nil)
	if status != http.StatusNotFound {
		log.Fatalf("profile after delete: expected 404, got %d", status)
	}

	fmt.Printf("accountd smoke test passed: %s\n", email)
}

func call(client *http.Client, base, method, path string, body map[string]any, bearer string, out any) int {
	var rd *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			log.Fatalf("marshal %s body: %v", path, err)
		}
		rd = bytes.NewReader(data)
	} else {
		rd = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, base+path, rd)
	if err != nil {
		log.Fatalf("build %s %s: %v", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			log.Fatalf("decode %s %s response: %v", method, path, err)
		}
	}
	return resp.StatusCode
}
