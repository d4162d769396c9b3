// Package apidocs registers the OpenAPI document served under /docs/.
package apidocs

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
        "/login": {
            "post": {
                "description": "Verifies form credentials, starts a session, and sets the session cookie.",
                "consumes": ["application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["Session"],
                "summary": "Log in",
                "parameters": [
                    {"type": "string", "description": "Username", "name": "username", "in": "formData", "required": true},
                    {"type": "string", "description": "Password", "name": "password", "in": "formData", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.loginResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.envelope"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/api.envelope"}}
                }
            }
        },
        "/logout": {
            "post": {
                "description": "Ends the current session, if any, and clears the session cookie.",
                "produces": ["application/json"],
                "tags": ["Session"],
                "summary": "Log out",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.envelope"}}
                }
            }
        },
        "/publish": {
            "post": {
                "description": "Moderates the article (unless moderation is disabled) and submits it to WordPress. Business failures are reported with HTTP 200 and status \"error\".",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Publish"],
                "summary": "Publish an article",
                "parameters": [
                    {"description": "Article", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/publish.Request"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/publish.Response"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.envelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/api.envelope"}}
                }
            }
        },
        "/api/stats/monthly": {
            "get": {
                "description": "Counts posts created in WordPress since the first of the current month.",
                "produces": ["application/json"],
                "tags": ["Reports"],
                "summary": "Monthly publish count",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.monthlyStatsResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/api.envelope"}}
                }
            }
        },
        "/api/publish/history": {
            "get": {
                "description": "Lists the most recently created WordPress posts, newest first.",
                "produces": ["application/json"],
                "tags": ["Reports"],
                "summary": "Recent posts",
                "parameters": [
                    {"type": "integer", "description": "Maximum posts to return (default: 20, max: 100)", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.historyResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/api.envelope"}}
                }
            }
        },
        "/api/user": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Session"],
                "summary": "Current user",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.userResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/api.envelope"}}
                }
            }
        },
        "/api/audit": {
            "get": {
                "description": "Returns recent publish attempts, newest first.",
                "produces": ["application/json"],
                "tags": ["Audit"],
                "summary": "List publish audit events",
                "parameters": [
                    {"type": "integer", "description": "Maximum events (default: 50)", "name": "limit", "in": "query"},
                    {"type": "string", "description": "Filter by username", "name": "username", "in": "query"},
                    {"type": "boolean", "description": "Filter by outcome", "name": "success", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.auditEventsResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/api.envelope"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/api.envelope"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/api.envelope"}}
                }
            }
        },
        "/config": {
            "get": {
                "description": "Returns the active configuration. Credentials are reported as \"configured\" rather than echoed.",
                "produces": ["application/json"],
                "tags": ["Config"],
                "summary": "Get config",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.configResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/api.envelope"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/api.envelope"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/api.envelope"}}
                }
            },
            "post": {
                "description": "Applies a partial update to the CMS and moderation settings, persists it, and reloads the clients.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Config"],
                "summary": "Update config",
                "parameters": [
                    {"description": "Fields to change", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/platform.Update"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.configUpdateResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.envelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/api.envelope"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/api.envelope"}}
                }
            }
        },
        "/config/history": {
            "get": {
                "description": "Returns recent configuration revisions, newest first.",
                "produces": ["application/json"],
                "tags": ["Config"],
                "summary": "Config history",
                "parameters": [
                    {"type": "integer", "description": "Maximum revisions (default: 20)", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.configHistoryResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/api.envelope"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/api.envelope"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/api.envelope"}}
                }
            }
        },
        "/health": {
            "get": {
                "description": "Reports version, active session count, and feature flags.",
                "produces": ["application/json"],
                "tags": ["System"],
                "summary": "Service status",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.healthStatusResponse"}}
                }
            }
        },
        "/api/info": {
            "get": {
                "description": "Lists the available endpoints and enabled features.",
                "produces": ["application/json"],
                "tags": ["System"],
                "summary": "Service info",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.infoResponse"}}
                }
            }
        }
    },
    "definitions": {
        "api.envelope": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "api.loginResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "message": {"type": "string"},
                "role": {"type": "string"},
                "redirect": {"type": "string"}
            }
        },
        "api.userResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "user": {
                    "type": "object",
                    "properties": {
                        "username": {"type": "string"},
                        "role": {"type": "string"},
                        "login_time": {"type": "string"},
                        "expires_at": {"type": "string"}
                    }
                }
            }
        },
        "api.monthlyStatsResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "message": {"type": "string"},
                "monthly_count": {"type": "integer"},
                "current_month": {"type": "string"},
                "simulated": {"type": "boolean"}
            }
        },
        "api.historyResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "message": {"type": "string"},
                "posts": {"type": "array", "items": {"$ref": "#/definitions/cms.HistoryPost"}},
                "total": {"type": "integer"}
            }
        },
        "api.auditEventsResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "events": {"type": "array", "items": {"$ref": "#/definitions/audit.Event"}},
                "total": {"type": "integer"}
            }
        },
        "api.configResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "message": {"type": "string"},
                "mode": {"type": "string"},
                "config": {"type": "object", "additionalProperties": true}
            }
        },
        "api.configUpdateResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "message": {"type": "string"},
                "updated": {"type": "array", "items": {"type": "string"}}
            }
        },
        "api.configHistoryResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "mode": {"type": "string"},
                "revisions": {"type": "array", "items": {"$ref": "#/definitions/configstore.Revision"}},
                "total": {"type": "integer"}
            }
        },
        "api.healthStatusResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "timestamp": {"type": "string"},
                "service": {"type": "string"},
                "version": {"type": "string"},
                "active_sessions": {"type": "integer"},
                "moderation_enabled": {"type": "boolean"},
                "test_mode": {"type": "boolean"},
                "config_mode": {"type": "string"}
            }
        },
        "api.infoResponse": {
            "type": "object",
            "properties": {
                "service": {"type": "string"},
                "version": {"type": "string"},
                "endpoints": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "method": {"type": "string"},
                            "path": {"type": "string"},
                            "access": {"type": "string"}
                        }
                    }
                },
                "features": {"type": "object", "additionalProperties": {"type": "boolean"}}
            }
        },
        "audit.Event": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "timestamp": {"type": "string"},
                "duration_ms": {"type": "integer"},
                "request_id": {"type": "string"},
                "username": {"type": "string"},
                "role": {"type": "string"},
                "title": {"type": "string"},
                "publish_type": {"type": "string"},
                "moderation_conclusion": {"type": "string"},
                "moderation_bypassed": {"type": "boolean"},
                "post_id": {"type": "integer"},
                "cms_status": {"type": "string"},
                "success": {"type": "boolean"},
                "error_kind": {"type": "string"},
                "error_message": {"type": "string"}
            }
        },
        "cms.HistoryPost": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "title": {"type": "string"},
                "status": {"type": "string"},
                "date": {"type": "string"},
                "modified": {"type": "string"},
                "link": {"type": "string"}
            }
        },
        "configstore.Revision": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "version": {"type": "integer"},
                "author": {"type": "string"},
                "comment": {"type": "string"},
                "active": {"type": "boolean"},
                "created_at": {"type": "string"}
            }
        },
        "moderation.Violation": {
            "type": "object",
            "properties": {
                "words": {"type": "array", "items": {"type": "string"}},
                "category": {"type": "string"},
                "description": {"type": "string"}
            }
        },
        "moderation.Result": {
            "type": "object",
            "properties": {
                "conclusion": {"type": "string", "enum": ["compliant", "non_compliant", "disabled", "unknown"]},
                "violations": {"type": "array", "items": {"$ref": "#/definitions/moderation.Violation"}},
                "bypassed": {"type": "boolean"},
                "message": {"type": "string"},
                "provider_code": {"type": "integer"}
            }
        },
        "platform.Update": {
            "type": "object",
            "properties": {
                "cms_domain": {"type": "string"},
                "cms_username": {"type": "string"},
                "cms_app_password": {"type": "string"},
                "moderation_api_key": {"type": "string"},
                "moderation_secret_key": {"type": "string"},
                "test_mode": {"type": "boolean"},
                "moderation_enabled": {"type": "boolean"}
            }
        },
        "publish.Request": {
            "type": "object",
            "required": ["title", "content"],
            "properties": {
                "title": {"type": "string"},
                "content": {"type": "string"},
                "publish_type": {"type": "string", "enum": ["normal", "headline"]}
            }
        },
        "publish.Response": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "message": {"type": "string"},
                "post_id": {"type": "integer"},
                "cms_status": {"type": "string"},
                "link": {"type": "string"},
                "audit_result": {"$ref": "#/definitions/moderation.Result"},
                "violations": {"type": "array", "items": {"$ref": "#/definitions/moderation.Violation"}},
                "moderation_bypassed": {"type": "boolean"},
                "error_kind": {"type": "string"},
                "detail": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "wp-publish-gateway API",
	Description:      "Session-authenticated article publishing to WordPress with content moderation.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
