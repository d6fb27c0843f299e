package http

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	fiberSwagger "github.com/swaggo/fiber-swagger"
)

// DocAPI adds the default documentation route to the API.
// Ex: /{serviceName}/docs
// And adds the swagger route too.
// Ex: /{serviceName}/swagger/*
func DocAPI(serviceName, title string, app *fiber.App) {
	docURL := fmt.Sprintf("/%s/docs", serviceName)

	app.Get(docURL, func(c *fiber.Ctx) error {
		return c.SendFile("./api/swagger.yaml")
	})

	app.Get("/swagger/*", fiberSwagger.WrapHandler)
}
