package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SISACAD Enrollment API",
        "description": "Enrollment cart, seat reservations and confirmation",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Catalog", "description": "Course offerings and live seats"},
        {"name": "Cart", "description": "Student enrollment cart"},
        {"name": "Admin", "description": "Staff operations"}
    ],
    "paths": {
        "/offerings": {
            "get": {
                "tags": ["Catalog"],
                "summary": "List course offerings",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sections/{id}/availability": {
            "get": {
                "tags": ["Catalog"],
                "summary": "Live seat availability for a section",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown section", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/cart": {
            "get": {
                "tags": ["Cart"],
                "summary": "Active cart",
                "parameters": [
                    {"name": "termId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Cart"],
                "summary": "Open the cart for a term",
                "parameters": [
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/CartTermRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown term", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/cart/items": {
            "post": {
                "tags": ["Cart"],
                "summary": "Reserve a section in the cart",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AddToCartRequest"}}
                ],
                "responses": {
                    "201": {"description": "Reserved", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown section or term", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "No seats available", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/cart/items/{sectionId}": {
            "delete": {
                "tags": ["Cart"],
                "summary": "Remove a section from the cart",
                "parameters": [
                    {"name": "sectionId", "in": "path", "required": true, "type": "string"},
                    {"name": "termId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Removed"}
                }
            }
        },
        "/cart/confirm": {
            "post": {
                "tags": ["Cart"],
                "summary": "Confirm the cart into enrollments",
                "parameters": [
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/CartTermRequest"}}
                ],
                "responses": {
                    "200": {"description": "Confirmed, possibly partially", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Empty cart or no valid items", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollments": {
            "get": {
                "tags": ["Cart"],
                "summary": "Sections the caller is enrolled in",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollment-attempts": {
            "get": {
                "tags": ["Admin"],
                "summary": "Enrollment attempt audit feed",
                "parameters": [
                    {"name": "studentId", "in": "query", "type": "string"},
                    {"name": "termId", "in": "query", "type": "string"},
                    {"name": "action", "in": "query", "type": "string", "enum": ["ADD_TO_CART", "REMOVE_FROM_CART", "CONFIRM"]},
                    {"name": "since", "in": "query", "type": "string", "format": "date-time"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/sweeps": {
            "post": {
                "tags": ["Admin"],
                "summary": "Release expired holds now",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/catalog/refresh": {
            "post": {
                "tags": ["Admin"],
                "summary": "Drop cached offerings",
                "responses": {
                    "204": {"description": "Refreshed"}
                }
            }
        },
        "/admin/metrics/summary": {
            "get": {
                "tags": ["Admin"],
                "summary": "Enrollment counters snapshot",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "AddToCartRequest": {
            "type": "object",
            "properties": {
                "section_id": {"type": "string"},
                "term_id": {"type": "string"}
            },
            "required": ["section_id"]
        },
        "CartTermRequest": {
            "type": "object",
            "properties": {
                "term_id": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
