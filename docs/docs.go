// Package docs registers the OpenAPI document served under /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/post/new": {
            "get": {
                "produces": ["application/json"],
                "tags": ["posts"],
                "summary": "Create an empty draft",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/envelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/envelope"}}
                }
            }
        },
        "/post/save": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["posts"],
                "summary": "Save a post",
                "parameters": [
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/savePostRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/envelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/envelope"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/envelope"}}
                }
            }
        },
        "/post/show/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["posts"],
                "summary": "Get a post",
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true},
                    {"type": "boolean", "name": "edit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/envelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/envelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/envelope"}}
                }
            }
        },
        "/post/list/{page}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["posts"],
                "summary": "List saved posts, newest first",
                "parameters": [
                    {"type": "integer", "name": "page", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/envelope"}}
                }
            }
        },
        "/post/{id}": {
            "delete": {
                "produces": ["application/json"],
                "tags": ["posts"],
                "summary": "Delete a post",
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/envelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/envelope"}}
                }
            }
        },
        "/tag/list": {
            "get": {
                "produces": ["application/json"],
                "tags": ["tags"],
                "summary": "List tag names",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/envelope"}}
                }
            }
        },
        "/user/register": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Create an account and start a session",
                "parameters": [
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/credentials"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/envelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/envelope"}}
                }
            }
        },
        "/user/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Start a session",
                "parameters": [
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/credentials"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/envelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/envelope"}}
                }
            }
        },
        "/user/logout": {
            "post": {
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "End the session",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/envelope"}}
                }
            }
        },
        "/user/me": {
            "get": {
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Current user",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/envelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/envelope"}}
                }
            }
        },
        "/user/features": {
            "get": {
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Feature flags for the current user",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/envelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/envelope"}}
                }
            }
        }
    },
    "definitions": {
        "envelope": {
            "type": "object",
            "properties": {
                "status": {"type": "integer"},
                "error": {
                    "type": "object",
                    "properties": {
                        "code": {"type": "string"},
                        "detail": {"type": "string"}
                    }
                },
                "data": {}
            }
        },
        "savePostRequest": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "title": {"type": "string"},
                "title_image": {"type": "string"},
                "content": {"type": "string"},
                "tags": {"type": "array", "items": {"type": "string"}}
            }
        },
        "credentials": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "Scriptorium API",
	Description:      "Personal blogging backend: drafts, markdown posts and tags.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
