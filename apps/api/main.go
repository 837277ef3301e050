package main

// TODO: rate limit the unauthenticated user endpoints (login & password reset)
func main() {
	startWithDig()
}
