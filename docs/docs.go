// Package docs registers the OpenAPI description served on /swagger/*.
// Regenerate with: swag init -g cmd/server/main.go
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/auth/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Login",
                "parameters": [
                    {"description": "Login credentials", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.loginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.authResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/auth/register": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Register a new user",
                "parameters": [
                    {"description": "Registration form", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.registerRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handler.authResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/auth/logout": {
            "post": {"tags": ["auth"], "summary": "Logout", "responses": {"204": {"description": "No Content"}}}
        },
        "/auth/refresh": {
            "post": {
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Refresh the session tokens",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.authResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/auth/forgot-password/{email}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Security question for password recovery",
                "parameters": [{"type": "string", "description": "Account email", "name": "email", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.questionResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/auth/reset-password": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Reset password",
                "parameters": [
                    {"description": "Recovery answer and new password", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.resetPasswordRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.messageResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/session": {
            "get": {
                "produces": ["application/json"],
                "tags": ["session"],
                "summary": "Current session",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.sessionResponse"}}}
            }
        },
        "/session/user": {
            "patch": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["session"],
                "summary": "Update the cached user",
                "parameters": [
                    {"description": "Fields to merge", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/domain.UserPatch"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.sessionResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/admin/dashboard": {
            "get": {"produces": ["application/json"], "tags": ["dashboards"], "summary": "Admin dashboard",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.dashboardResponse"}}}}
        },
        "/veterinario/dashboard": {
            "get": {"produces": ["application/json"], "tags": ["dashboards"], "summary": "Veterinarian dashboard",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.dashboardResponse"}}}}
        },
        "/lojista/dashboard": {
            "get": {"produces": ["application/json"], "tags": ["dashboards"], "summary": "Merchant dashboard",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.dashboardResponse"}}}}
        },
        "/tutor/dashboard": {
            "get": {"produces": ["application/json"], "tags": ["dashboards"], "summary": "Tutor dashboard",
                "parameters": [
                    {"type": "integer", "description": "Zero-based page", "name": "page", "in": "query"},
                    {"type": "integer", "description": "Page size (max 100)", "name": "size", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.dashboardResponse"}}}}
        }
    },
    "definitions": {
        "domain.User": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "username": {"type": "string"},
                "email": {"type": "string"},
                "fullName": {"type": "string"},
                "userType": {"type": "string", "enum": ["ADMIN", "VETERINARIO", "LOJISTA", "TUTOR"]},
                "active": {"type": "boolean"},
                "createdAt": {"type": "string"},
                "updatedAt": {"type": "string"}
            }
        },
        "domain.UserPatch": {
            "type": "object",
            "properties": {
                "username": {"type": "string"},
                "email": {"type": "string"},
                "fullName": {"type": "string"},
                "active": {"type": "boolean"}
            }
        },
        "handler.loginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {"email": {"type": "string"}, "password": {"type": "string"}}
        },
        "handler.registerRequest": {
            "type": "object",
            "required": ["username", "email", "password", "confirmPassword", "fullName", "userType",
                "securityQuestion1", "securityAnswer1", "securityQuestion2", "securityAnswer2", "securityQuestion3", "securityAnswer3"],
            "properties": {
                "username": {"type": "string"},
                "email": {"type": "string"},
                "password": {"type": "string"},
                "confirmPassword": {"type": "string"},
                "fullName": {"type": "string"},
                "userType": {"type": "string", "enum": ["ADMIN", "VETERINARIO", "LOJISTA", "TUTOR"]},
                "securityQuestion1": {"type": "string"},
                "securityAnswer1": {"type": "string"},
                "securityQuestion2": {"type": "string"},
                "securityAnswer2": {"type": "string"},
                "securityQuestion3": {"type": "string"},
                "securityAnswer3": {"type": "string"},
                "cnpj": {"type": "string"},
                "crmv": {"type": "string"},
                "storeType": {"type": "string"}
            }
        },
        "handler.resetPasswordRequest": {
            "type": "object",
            "required": ["email", "securityAnswer", "newPassword", "confirmNewPassword"],
            "properties": {
                "email": {"type": "string"},
                "securityAnswer": {"type": "string"},
                "newPassword": {"type": "string"},
                "confirmNewPassword": {"type": "string"}
            }
        },
        "handler.authResponse": {
            "type": "object",
            "properties": {"user": {"$ref": "#/definitions/domain.User"}, "redirect": {"type": "string"}}
        },
        "handler.sessionResponse": {
            "type": "object",
            "properties": {
                "user": {"$ref": "#/definitions/domain.User"},
                "isAuthenticated": {"type": "boolean"},
                "isLoading": {"type": "boolean"},
                "landing": {"type": "string"}
            }
        },
        "handler.dashboardResponse": {
            "type": "object",
            "properties": {"user": {"$ref": "#/definitions/domain.User"}, "dashboard": {"type": "object"}}
        },
        "handler.questionResponse": {"type": "object", "properties": {"question": {"type": "string"}}},
        "handler.messageResponse": {"type": "object", "properties": {"message": {"type": "string"}}},
        "handler.errorResponse": {"type": "object", "properties": {"error": {"type": "string"}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Pet Connect Web Gateway",
	Description:      "Session gateway for the Pet Connect marketplace web app.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
