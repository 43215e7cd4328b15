// Package docs registers the swagger document served at /swagger/*any.
// Regenerate with: swag init -g cmd/order-service/main.go -o docs
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
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/cart/carts": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["cart"],
                "summary": "Add a product to the caller's cart",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/AddItemRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/Envelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/Envelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/cart/get_all_carts": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["cart"],
                "summary": "Get the caller's cart",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/cart/update_carts/{id}": {
            "put": {
                "security": [{"BearerAuth": []}],
                "tags": ["cart"],
                "summary": "Set or remove a cart line",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateItemRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/Envelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/cart/delete_carts/{id}": {
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["cart"],
                "summary": "Empty the caller's cart",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/order/orders": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["order"],
                "summary": "Create an order from a product list",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/CreateOrderRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/Envelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/Envelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/order/checkout": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["order"],
                "summary": "Create an order from the caller's cart",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/CheckoutRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/Envelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/order/get_all_orders": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["order"],
                "summary": "List the caller's orders",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/order/get_single_product/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["order"],
                "summary": "Get one of the caller's orders",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/order/update_orders/{id}": {
            "put": {
                "security": [{"BearerAuth": []}],
                "tags": ["order"],
                "summary": "Change order status or fulfillment flag",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateOrderRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/Envelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/order/delete_orders/{id}": {
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["order"],
                "summary": "Delete a pending or cancelled order",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/Envelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/order/admin/orders": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["order"],
                "summary": "List all orders (admin)",
                "parameters": [
                    {"type": "integer", "name": "limit", "in": "query"},
                    {"type": "integer", "name": "offset", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/esewa/create/{id}": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["payment"],
                "summary": "Build the signed eSewa payment form for an order",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/EsewaFormData"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/Envelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/esewa/success": {
            "get": {
                "tags": ["payment"],
                "summary": "Gateway success callback",
                "parameters": [{"type": "string", "name": "data", "in": "query", "required": true}],
                "responses": {"302": {"description": "Redirect to the storefront"}}
            }
        },
        "/esewa/failure": {
            "get": {
                "tags": ["payment"],
                "summary": "Gateway failure callback",
                "responses": {"302": {"description": "Redirect to the storefront"}}
            }
        }
    },
    "definitions": {
        "Envelope": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "message": {"type": "string"},
                "data": {},
                "error": {"type": "string"}
            }
        },
        "AddItemRequest": {
            "type": "object",
            "properties": {
                "productId": {"type": "string"},
                "quantity": {"type": "integer", "example": 2}
            }
        },
        "UpdateItemRequest": {
            "type": "object",
            "properties": {
                "productId": {"type": "string"},
                "quantity": {"type": "integer", "example": 1}
            }
        },
        "CreateOrderRequest": {
            "type": "object",
            "properties": {
                "products": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "productId": {"type": "string"},
                            "quantity": {"type": "integer"}
                        }
                    }
                },
                "totalAmount": {"type": "number"},
                "paymentMethod": {"type": "string", "enum": ["esewa", "cashOnDelivery"]}
            }
        },
        "CheckoutRequest": {
            "type": "object",
            "properties": {
                "paymentMethod": {"type": "string", "enum": ["esewa", "cashOnDelivery"]}
            }
        },
        "UpdateOrderRequest": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["Pending", "Shipped", "Delivered", "Cancelled"]},
                "fulfillmentConfirmed": {"type": "boolean"}
            }
        },
        "EsewaFormData": {
            "type": "object",
            "properties": {
                "amount": {"type": "string"},
                "failure_url": {"type": "string"},
                "product_delivery_charge": {"type": "string"},
                "product_service_charge": {"type": "string"},
                "product_code": {"type": "string"},
                "signature": {"type": "string"},
                "signed_field_names": {"type": "string"},
                "success_url": {"type": "string"},
                "tax_amount": {"type": "string"},
                "total_amount": {"type": "string"},
                "transaction_uuid": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "Tienda order-service API",
	Description:      "Cart, orders and eSewa payments.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
