// Package validation checks flat string maps against pipe-separated rule
// strings. It guards configuration options and request input.
//
//	v := validation.Make(map[string]string{"port": "3306"}, validation.Rules{
//	    "port":    "sometimes|integer|gte:1|lte:65535",
//	    "charset": "sometimes|alpha_num",
//	})
//	if err := v.Validate(); err != nil {
//	    // err is *validation.Errors
//	}
//
// Fields are checked in sorted order and each field stops at its first
// failing rule. Available rules:
//
//   - required   present and not blank
//   - sometimes  skip the remaining rules when the value is empty
//   - integer    parseable as int
//   - gte:n      numeric and >= n
//   - lte:n      numeric and <= n
//   - max:n      at most n UTF-8 characters
//   - in:a,b,c   one of the listed values
//   - alpha_num  letters and digits
//   - alpha_dash letters, digits, dashes and underscores
//   - regex:re   matches re
//
// An unknown rule name fails the field.
package validation
