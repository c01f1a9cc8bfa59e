package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Statusgraph API",
        "description": "Conversation context and quote approval for social statuses",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Context", "description": "Thread ancestors, descendants and reply trees"},
        {"name": "Quotes", "description": "Quote requests and approval policies"}
    ],
    "paths": {
        "/statuses/{id}/context": {
            "get": {
                "tags": ["Context"],
                "summary": "Ancestors and descendants of a status",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ErrorEnvelope"}}
                }
            }
        },
        "/statuses/{id}/replies/tree": {
            "get": {
                "tags": ["Context"],
                "summary": "Nested replies below a root status",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "max_level", "in": "query", "type": "integer", "description": "Reply levels shown below the root; direct replies are level 1 (default 2)"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/statuses/{id}/quotes": {
            "get": {
                "tags": ["Quotes"],
                "summary": "List quotes of a status",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "max_id", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/statuses/{id}/quote": {
            "get": {
                "tags": ["Quotes"],
                "summary": "Quote embedded by a status",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ErrorEnvelope"}}
                }
            },
            "post": {
                "tags": ["Quotes"],
                "summary": "Request to quote another status",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateQuoteRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already quoting", "schema": {"$ref": "#/definitions/ErrorEnvelope"}}
                }
            }
        },
        "/statuses/{id}/quote/approve": {
            "post": {
                "tags": ["Quotes"],
                "summary": "Approve a pending quote",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/statuses/{id}/quote/reject": {
            "post": {
                "tags": ["Quotes"],
                "summary": "Reject a pending quote",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/statuses/{id}/quote/revoke": {
            "post": {
                "tags": ["Quotes"],
                "summary": "Revoke an accepted quote",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/statuses/{id}/quote_approval": {
            "get": {
                "tags": ["Quotes"],
                "summary": "Quote approval policy of a status",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Quotes"],
                "summary": "Change who may quote a status",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateQuoteApprovalRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "CreateQuoteRequest": {
            "type": "object",
            "properties": {
                "quoted_status_id": {"type": "integer"}
            },
            "required": ["quoted_status_id"]
        },
        "UpdateQuoteApprovalRequest": {
            "type": "object",
            "properties": {
                "automatic": {"type": "array", "items": {"type": "string", "enum": ["public", "followers"]}},
                "manual": {"type": "array", "items": {"type": "string", "enum": ["public", "followers"]}}
            }
        },
        "QuoteApproval": {
            "type": "object",
            "properties": {
                "automatic": {"type": "array", "items": {"type": "string"}},
                "manual": {"type": "array", "items": {"type": "string"}},
                "current_user": {"type": "string", "enum": ["automatic", "manual", "denied", "unknown"]}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "limit": {"type": "integer"},
                "next_max_id": {"type": "integer"}
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
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"$ref": "#/definitions/ResponseMeta"}
            }
        },
        "ResponseMeta": {
            "type": "object",
            "properties": {
                "processing_time_ms": {"type": "integer"},
                "thread": {
                    "type": "object",
                    "properties": {
                        "root_id": {"type": "integer"},
                        "cache_key": {"type": "string"},
                        "cache_hit": {"type": "boolean"}
                    }
                }
            }
        },
        "ErrorEnvelope": {
            "type": "object",
            "properties": {
                "error": {"$ref": "#/definitions/APIError"}
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
