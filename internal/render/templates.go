package render

const defaultTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<h1>{{.ProductName}}</h1>
<h2>{{.Title}}</h2>
<dl>
{{range allFields .Fields}}<dt>{{.Name}}</dt><dd>{{.Value}}</dd>
{{end}}</dl>
<p class="generated">Generated {{.GeneratedAt.Format "2006-01-02"}}</p>
</body>
</html>`

const nnnTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<h1>Non-Disclosure, Non-Use and Non-Circumvention Agreement</h1>
<p>This Agreement is made effective as of {{formatDate (field .Fields "effective_date")}} between
<strong>{{field .Fields "disclosing_party"}}</strong> (the "Disclosing Party") and
<strong>{{field .Fields "receiving_party"}}</strong>{{with field .Fields "receiving_party_cn"}} ({{.}}){{end}}
(the "Receiving Party").</p>
<h2>1. Protected Information</h2>
<p>The Receiving Party acknowledges that it will receive confidential information concerning:
{{field .Fields "product_description"}}</p>
<h2>2. Non-Use</h2>
<p>The Receiving Party shall not use the Protected Information for any purpose other than the
performance of its obligations to the Disclosing Party.</p>
<h2>3. Non-Disclosure</h2>
<p>The Receiving Party shall hold the Protected Information in strict confidence and shall not
disclose it to any third party.</p>
<h2>4. Non-Circumvention</h2>
<p>The Receiving Party shall not circumvent the Disclosing Party in any dealings with its
customers or suppliers.</p>
<h2>5. Term</h2>
<p>This Agreement remains in force for {{field .Fields "term_years"}} year(s) from the effective date.</p>
<h2>6. Dispute Resolution</h2>
<p>Disputes shall be submitted to arbitration in {{field .Fields "governing_city"}}.</p>
<p class="generated">Generated {{.GeneratedAt.Format "2006-01-02"}}</p>
</body>
</html>`

const oemTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<h1>OEM Manufacturing Agreement</h1>
<p>This Agreement is made effective as of {{formatDate (field .Fields "effective_date")}} between
<strong>{{field .Fields "buyer"}}</strong> (the "Buyer") and
<strong>{{field .Fields "manufacturer"}}</strong> (the "Manufacturer").</p>
<h2>1. Product</h2>
<p>The Manufacturer shall produce the following product for the Buyer:
{{field .Fields "product_spec"}}</p>
{{with field .Fields "quality_standard"}}<h2>2. Quality</h2>
<p>All units shall conform to the following quality standard: {{.}}</p>{{end}}
<h2>3. Tooling and Molds</h2>
<p>All tooling and molds paid for by the Buyer remain the Buyer's property.</p>
<h2>4. Dispute Resolution</h2>
<p>Disputes shall be submitted to arbitration in {{field .Fields "governing_city"}}.</p>
<p class="generated">Generated {{.GeneratedAt.Format "2006-01-02"}}</p>
</body>
</html>`

const trademarkTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<h1>Trademark Application (CNIPA)</h1>
<table>
<tr><th>Applicant</th><td>{{field .Fields "applicant_name"}}</td></tr>
<tr><th>Address</th><td>{{field .Fields "applicant_address"}}</td></tr>
<tr><th>Mark</th><td>{{field .Fields "mark_text"}}</td></tr>
<tr><th>Nice class</th><td>{{field .Fields "nice_class"}}</td></tr>
</table>
<h2>Goods and Services</h2>
<p>{{field .Fields "goods_description"}}</p>
<p class="generated">Generated {{.GeneratedAt.Format "2006-01-02"}}</p>
</body>
</html>`
