// @title           Conference API
// @version         1.0
// @description     API сайта конференции: аккаунты, подтверждение email, сброс пароля, подача докладов.
// @host            localhost:5000
// @BasePath        /
// @securityDefinitions.apikey SessionToken
// @in              header
// @name            Authorization

package main

import "conference_backend/internal/app"

func main() {
	app.Run()
}
